package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataFile  string `json:"data_file" validate:"required"`                              // 数据文件路径(.csv/.xlsx)
	Encoding  string `json:"encoding" validate:"omitempty,oneof=utf-8 utf8 gbk gb18030"` // CSV文件编码
	SheetName string `json:"sheet_name"`                                                 // xlsx工作表名，为空取第一个
	Strict    bool   `json:"strict"`                                                     // 严格模式：校验失败即拒绝加载
	Watch     bool   `json:"watch"`                                                      // 监听数据文件变化并重新加载

	LogName    string `json:"log_name" validate:"required"`
	LogMaxSize string `json:"log_max_size"` // 形如 "10 * 1024 * 1024"
	PidFile    string `json:"pid_file"`

	Server struct {
		Addr           string   `json:"addr" validate:"required"`                          // 监听地址
		Mode           string   `json:"mode" validate:"omitempty,oneof=debug release test"` // gin运行模式
		AllowedOrigins []string `json:"allowed_origins"`                                   // 为空则允许所有来源
	} `json:"server"`

	Report struct {
		Schedule      string   `json:"schedule"`       // cron表达式，为空则不导出
		Dir           string   `json:"dir"`            // 报表保存目录
		Webhook       string   `json:"webhook"`        // 机器人webhook地址，为空则不推送
		RetryTimes    int      `json:"retry_times" validate:"gte=0,lte=10"`
		RetryInterval Duration `json:"retry_interval"` // 推送重试间隔
	} `json:"report"`
}

// DataConfig 数据列配置
type DataConfig struct {
	Columns         map[string]string `json:"columns"`                                                // 字段 -> 表头名
	ComparisonTerms []string          `json:"comparison_terms" validate:"len=2,unique,dive,required"` // 学期对比，默认 Spring/Fall
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	loadErr            error
	mu                 sync.RWMutex
)

// 环境变量覆盖项
const (
	EnvDataFile = "DASHBOARD_DATA_FILE"
	EnvAddr     = "DASHBOARD_ADDR"
	EnvLogName  = "DASHBOARD_LOG"
	EnvWebhook  = "DASHBOARD_WEBHOOK"
)

// LoadConfig 加载配置，进程内只加载一次
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	once.Do(func() {
		instance, dataConfigInstance, loadErr = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, loadErr
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	// .env 可选，不存在时忽略
	_ = godotenv.Load(filepath.Join(jsonFolder, ".env"))
	applyEnv(cfg)
	cfg.applyDefaults()
	dcfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := dcfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDataFile); v != "" {
		cfg.DataFile = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvLogName); v != "" {
		cfg.LogName = v
	}
	if v := os.Getenv(EnvWebhook); v != "" {
		cfg.Report.Webhook = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "report"
	}
	if c.Report.RetryInterval == 0 {
		c.Report.RetryInterval = Duration(2 * time.Second)
	}
}

// Validate 校验配置字段
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}

// Validate 校验数据列配置，对比学期必须为两个不同的非空值
func (dc *DataConfig) Validate() error {
	if err := validator.New().Struct(dc); err != nil {
		return fmt.Errorf("数据配置校验失败: %w", err)
	}
	return nil
}

// 默认表头，与数据文件一致
var defaultColumns = map[string]string{
	"year":         "Year",
	"term":         "Term",
	"applications": "Applications",
	"admitted":     "Admitted",
	"enrolled":     "Enrolled",
	"retention":    "Retention Rate (%)",
	"satisfaction": "Student Satisfaction (%)",
	"engineering":  "Engineering Enrolled",
	"business":     "Business Enrolled",
	"arts":         "Arts Enrolled",
	"science":      "Science Enrolled",
}

// DefaultDataConfig 返回默认的数据列配置
func DefaultDataConfig() *DataConfig {
	dc := &DataConfig{}
	dc.applyDefaults()
	return dc
}

func (dc *DataConfig) applyDefaults() {
	if dc.Columns == nil {
		dc.Columns = make(map[string]string, len(defaultColumns))
	}
	for k, v := range defaultColumns {
		if dc.Columns[k] == "" {
			dc.Columns[k] = v
		}
	}
	if len(dc.ComparisonTerms) != 2 {
		dc.ComparisonTerms = []string{"Spring", "Fall"}
	}
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// GetColumn 返回字段对应的表头名
func (dc *DataConfig) GetColumn(key string) string {
	mu.RLock()
	defer mu.RUnlock()
	return dc.Columns[key]
}
