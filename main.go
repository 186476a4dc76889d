package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"

	"UniversityDashboard/src/config"
)

// 向看板服务发送 SIGHUP，使其重新打开日志文件(配合外部日志切割)
func main() {
	pidFile := flag.String("pid", "", "pid文件路径，默认读取配置中的 pid_file")
	flag.Parse()

	if *pidFile == "" {
		cfg, _, err := config.LoadConfig("./config", "config.json", "dataconfig.json")
		if err != nil {
			log.Fatal("加载配置失败:", err)
		}
		*pidFile = cfg.PidFile
	}

	data, err := os.ReadFile(*pidFile)
	if err != nil {
		log.Fatal("读取pid文件失败:", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Fatal("pid文件内容无效:", err)
	}

	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
	log.Printf("已向进程 %d 发送 SIGHUP", pid)
}
