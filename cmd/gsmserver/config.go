package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/legamerdc/gsm"
)

const envPrefix = "GSM"

// 配置键与命令行参数的对应关系
var flagKeys = map[string]string{
	"device":    "device",
	"baud":      "baud_rate",
	"port":      "port",
	"sync":      "synchronous",
	"log-level": "log_level",
	"trace":     "trace_path",
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for flag, key := range flagKeys {
		_ = v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag))
	}
}

// loadConfig 合并默认值、配置文件、GSM_* 环境变量与命令行参数（优先级依次升高）
func loadConfig(v *viper.Viper, file string) (gsm.Config, error) {
	d := gsm.DefaultConfig()
	v.SetDefault("device", d.Device)
	v.SetDefault("baud_rate", d.BaudRate)
	v.SetDefault("port", d.Port)
	v.SetDefault("synchronous", d.Synchronous)
	v.SetDefault("max_child_sockets", d.MaxChildSockets)
	v.SetDefault("command_timeout", d.CommandTimeout)
	v.SetDefault("stop_timeout", d.StopTimeout)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("trace_path", d.TracePath)
	v.SetDefault("log_level", d.LogLevel)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return gsm.Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg gsm.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return gsm.Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return gsm.Config{}, fmt.Errorf("config: port %d, max_child_sockets %d: %w", cfg.Port, cfg.MaxChildSockets, err)
	}
	return cfg, nil
}
