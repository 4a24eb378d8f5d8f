package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/primer/internal/config"
)

// cmdStart starts the daemon in the background
func cmdStart() error {
	if isRunning() {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	primerDir, err := config.EnsurePrimerDir()
	if err != nil {
		return fmt.Errorf("setup primer directory: %w", err)
	}

	primerdPath, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(primerdPath)
	cmd.Dir = primerDir
	cmd.Stdout = nil
	cmd.Stderr = nil

	// Detach from parent process (platform-specific)
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning() {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", daemonAddr())
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'primer logs')")
}

// cmdStop stops the daemon
func cmdStop() error {
	if !isRunning() {
		fmt.Println("Daemon is not running")
		return nil
	}

	primerDir, err := config.PrimerDir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(primerDir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning() {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

// cmdStatus shows daemon status
func cmdStatus() error {
	if !isRunning() {
		fmt.Println("Status: stopped")
		return nil
	}

	addr := daemonAddr()
	resp, err := http.Get(addr + "/v1/status")
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	defer resp.Body.Close()

	var status struct {
		Status        string `json:"status"`
		Version       string `json:"version"`
		UptimeSeconds int    `json:"uptime_seconds"`
		Chapters      int    `json:"chapters"`
		Lessons       int    `json:"lessons"`
		MaxScore      int    `json:"max_score"`
		Storage       string `json:"storage"`
		Events        bool   `json:"events"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("parse status: %w", err)
	}

	fmt.Printf("Status:    %s\n", status.Status)
	fmt.Printf("Version:   %s\n", status.Version)
	fmt.Printf("Uptime:    %s\n", time.Duration(status.UptimeSeconds)*time.Second)
	fmt.Printf("Content:   %d chapters, %d lessons, %d points\n", status.Chapters, status.Lessons, status.MaxScore)
	fmt.Printf("Storage:   %s\n", status.Storage)
	fmt.Printf("Events:    %t\n", status.Events)
	fmt.Printf("Address:   %s\n", addr)

	return nil
}

// cmdLogs shows the tail of the daemon log
func cmdLogs() error {
	primerDir, err := config.PrimerDir()
	if err != nil {
		return err
	}

	logPath := filepath.Join(primerDir, "logs", "primerd.log")

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}

	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	// Seek to end and go back ~4KB for recent logs
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	offset := info.Size() - 4096
	if offset < 0 {
		offset = 0
	}
	_, _ = file.Seek(offset, 0)

	reader := bufio.NewReader(file)
	// Skip partial first line if we seeked
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}

	return scanner.Err()
}

// isRunning checks if the daemon is running by calling the health endpoint
func isRunning() bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(daemonAddr() + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findDaemonBinary locates the primerd binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("primerd"); err == nil {
		return path, nil
	}

	// Check relative to this binary
	self, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(self), "primerd")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	locations := []string{
		"/usr/local/bin/primerd",
		"./primerd",
		"./cmd/primerd/primerd",
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("primerd binary not found (build with 'go build ./cmd/primerd')")
}
