package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"UniversityDashboard/src/api"
	"UniversityDashboard/src/config"
	"UniversityDashboard/src/datapush"
	"UniversityDashboard/src/dataset"
	"UniversityDashboard/src/datasource/file"
	"UniversityDashboard/src/processor"
	"UniversityDashboard/src/storage"

	"github.com/robfig/cron"
)

// app 运行期依赖
type app struct {
	cfg     *config.Config
	dcfg    *config.DataConfig
	logger  *storage.Logger
	holder  *dataset.Holder
	compare [2]string
	pusher  *datapush.Pusher
}

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	logger.SetConsole(os.Stdout)

	a, err := newApp(cfg, dcfg, logger)
	if err != nil {
		// 数据不可用时不提供任何看板
		logger.Fatal(err.Error())
		logger.Close()
		os.Exit(1)
	}

	if err := writePidFile(cfg.PidFile); err != nil {
		logger.Warning("写入pid文件失败: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Watch {
		go a.watchData(ctx)
	}

	c, err := a.scheduleJobs()
	if err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		logger.Close()
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	h := api.NewHandler(a.holder, logger, a.compare)
	router := api.SetupRouter(h, api.RouterConfig{
		Mode:           cfg.Server.Mode,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	go func() {
		logger.Info(fmt.Sprintf("看板服务已启动(%s)，按Ctrl+C退出", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP服务异常退出: " + err.Error())
			cancel()
		}
	}()

	waitForShutdown(ctx, logger, srv)
	if cfg.PidFile != "" {
		os.Remove(cfg.PidFile)
	}
	logger.Close()
}

// newApp 加载数据集；数据资源错误直接返回
func newApp(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) (*app, error) {
	ds, err := dataset.NewLoaderFromConfig(cfg, dcfg, logger).Load()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		dcfg:    dcfg,
		logger:  logger,
		holder:  dataset.NewHolder(ds),
		compare: compareTerms(dcfg),
	}
	if cfg.Report.Webhook != "" {
		a.pusher = datapush.NewPusher(cfg.Report.Webhook, cfg.Report.RetryTimes, time.Duration(cfg.Report.RetryInterval))
	}
	return a, nil
}

// compareTerms 对比的两个学期，默认 Spring/Fall
func compareTerms(dcfg *config.DataConfig) [2]string {
	if dcfg != nil && len(dcfg.ComparisonTerms) >= 2 {
		return [2]string{dcfg.ComparisonTerms[0], dcfg.ComparisonTerms[1]}
	}
	return [2]string{"Spring", "Fall"}
}

// scheduleJobs 报表导出与日志轮转检查
func (a *app) scheduleJobs() (*cron.Cron, error) {
	c := cron.New()

	if a.cfg.Report.Schedule != "" {
		if err := c.AddFunc(a.cfg.Report.Schedule, func() {
			if _, err := a.exportReport(time.Now()); err != nil {
				a.logger.Error(err.Error())
			}
		}); err != nil {
			return nil, fmt.Errorf("报表任务(%s): %w", a.cfg.Report.Schedule, err)
		}
	}

	if a.cfg.LogMaxSize != "" {
		if err := c.AddFunc("@every 1m", func() {
			rotated, err := a.logger.CheckRotate(a.cfg.LogMaxSize)
			if err != nil {
				a.logger.Error("日志轮转失败: " + err.Error())
			} else if rotated {
				a.logger.Info("日志文件已轮转")
			}
		}); err != nil {
			return nil, fmt.Errorf("日志轮转任务: %w", err)
		}
	}
	return c, nil
}

// exportReport 导出报表，配置了webhook时推送摘要
func (a *app) exportReport(now time.Time) (string, error) {
	t1 := time.Now()
	ds := a.holder.Get()

	path, err := processor.ExportReport(ds, a.compare, a.cfg.Report.Dir, now)
	if err != nil {
		return "", fmt.Errorf("导出报表失败: %w", err)
	}
	a.logger.Info(fmt.Sprintf("报表已导出: %s, 耗时%v", path, time.Since(t1)))

	if a.pusher != nil {
		title, text := datapush.FormatSummary(processor.TrendByYearTerm(ds), path)
		if err := a.pusher.PushMarkdown(title, text); err != nil {
			return path, fmt.Errorf("推送报表摘要失败: %w", err)
		}
		a.logger.Info("报表摘要已推送")
	}
	return path, nil
}

// watchData 数据文件变化时重新加载；失败时保留旧数据集
func (a *app) watchData(ctx context.Context) {
	monitor, err := file.NewFileMonitor(a.cfg.DataFile)
	if err != nil {
		a.logger.Error("创建文件监听失败: " + err.Error())
		return
	}
	defer monitor.Close()

	a.logger.Info("开始监听数据文件: " + a.cfg.DataFile)
	err = monitor.Watch(ctx, func(path string) {
		a.reload()
	})
	if err != nil {
		a.logger.Error("文件监听出错: " + err.Error())
	}
}

func (a *app) reload() {
	loader := dataset.NewLoaderFromConfig(a.cfg, a.dcfg, a.logger)
	if _, err := a.holder.ReloadFrom(loader); err != nil {
		a.logger.Warning("重新加载失败，继续使用原数据集: " + err.Error())
		return
	}
	a.logger.Info("数据集已更新: " + loader.Path())
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// waitForShutdown SIGHUP重新打开日志文件，SIGINT/SIGTERM关闭服务
func waitForShutdown(ctx context.Context, logger *storage.Logger, srv *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if err := logger.Reopen(""); err != nil {
					log.Println("重新打开日志文件失败:", err)
				} else {
					logger.Info("日志文件已重新打开")
				}
				continue
			}
			logger.Info("Received signal: " + sig.String() + ", shutting down...")
		}
		break
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭HTTP服务失败: " + err.Error())
	}
}
