package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "ARENA_"

const (
	MinPlayers  = 2
	MaxPlayers  = 8
	MinMapSize  = 10
	MaxMapSize  = 50
	MinWinPoint = 1
)

// Config 服务端运行参数
type Config struct {
	TCPPort      int
	UDPPort      int
	MaxPlayers   int
	MapSize      int
	WinnerPoints int
	AdminAddr    string
	LogFile      string
	LogLevel     string
	TickInterval time.Duration
	StartDelay   time.Duration
	PortAttempts int
}

func Default() Config {
	return Config{
		TCPPort:      3042,
		UDPPort:      3043,
		MaxPlayers:   2,
		MapSize:      20,
		WinnerPoints: 5,
		AdminAddr:    ":8090",
		LogLevel:     "info",
		TickInterval: 16 * time.Millisecond,
		StartDelay:   3 * time.Second,
		PortAttempts: 10,
	}
}

// Load 依次叠加：默认值 → envFile（可不存在）→ ARENA_* 环境变量 → 命令行参数，最后做范围修正
func Load(envFile string, args []string) (Config, error) {
	cfg := Default()
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.applyFlags(args); err != nil {
		return cfg, err
	}
	cfg.Clamp()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	ints := map[string]*int{
		"TCP_PORT":      &c.TCPPort,
		"UDP_PORT":      &c.UDPPort,
		"PLAYERS":       &c.MaxPlayers,
		"MAP_SIZE":      &c.MapSize,
		"WINNER_POINTS": &c.WinnerPoints,
		"PORT_ATTEMPTS": &c.PortAttempts,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"TICK_INTERVAL": &c.TickInterval,
		"START_DELAY":   &c.StartDelay,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = d
	}

	strs := map[string]*string{
		"ADMIN_ADDR": &c.AdminAddr,
		"LOG_FILE":   &c.LogFile,
		"LOG_LEVEL":  &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	return nil
}

func (c *Config) applyFlags(args []string) error {
	set := flag.NewFlagSet("arena-server", flag.ContinueOnError)
	set.IntVar(&c.MaxPlayers, "players", c.MaxPlayers, "players per game [2,8]")
	set.IntVar(&c.TCPPort, "tcp", c.TCPPort, "TCP listen port")
	set.IntVar(&c.UDPPort, "udp", c.UDPPort, "UDP listen port")
	set.IntVar(&c.MapSize, "map", c.MapSize, "arena side length [10,50]")
	set.IntVar(&c.WinnerPoints, "winner", c.WinnerPoints, "points needed to win (>=1)")
	set.StringVar(&c.AdminAddr, "admin", c.AdminAddr, "admin HTTP address, empty disables it")
	set.StringVar(&c.LogFile, "log", c.LogFile, "log file, empty logs to stderr")
	set.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug|info|warn|error")
	set.DurationVar(&c.StartDelay, "start-delay", c.StartDelay, "countdown before a game starts")
	return set.Parse(args)
}

// Clamp 把超出范围的参数修正到合法区间
func (c *Config) Clamp() {
	c.MaxPlayers = clamp(c.MaxPlayers, MinPlayers, MaxPlayers)
	c.MapSize = clamp(c.MapSize, MinMapSize, MaxMapSize)
	if c.WinnerPoints < MinWinPoint {
		c.WinnerPoints = MinWinPoint
	}
	if c.PortAttempts < 1 {
		c.PortAttempts = 1
	}
	if c.TickInterval <= 0 {
		c.TickInterval = Default().TickInterval
	}
	if c.StartDelay < 0 {
		c.StartDelay = 0
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
