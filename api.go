package gsm

import (
	"time"

	"github.com/charmbracelet/log"
)

// MaxChildSockets 为单个监听 socket 可同时跟踪的子连接数上限
const MaxChildSockets = 6

// NoSocket 表示"无 socket"哨兵值
const NoSocket = -1

// Config 为模组服务端配置
// 零值字段在使用前由 DefaultConfig 补齐
type Config struct {
	Device          string        `mapstructure:"device"`            // 串口设备，如 /dev/ttyACM0
	BaudRate        int           `mapstructure:"baud_rate"`         // 串口波特率
	Port            uint16        `mapstructure:"port"`              // 模组上的监听端口
	Synchronous     bool          `mapstructure:"synchronous"`       // Begin 是否阻塞到状态机结束
	MaxChildSockets int           `mapstructure:"max_child_sockets"` // 子连接表容量
	CommandTimeout  time.Duration `mapstructure:"command_timeout"`   // 单条 AT 命令超时
	StopTimeout     time.Duration `mapstructure:"stop_timeout"`      // Stop 等待关闭响应的时长
	PollInterval    time.Duration `mapstructure:"poll_interval"`     // 无 fd 可等待时的轮询间隔
	TracePath       string        `mapstructure:"trace_path"`        // 非空时记录 AT 会话（zstd）
	LogLevel        string        `mapstructure:"log_level"`

	Logger *log.Logger `mapstructure:"-"`
}

// DefaultConfig 提供一组可工作的默认值
func DefaultConfig() Config {
	return Config{
		Device:          "/dev/ttyACM0",
		BaudRate:        115200,
		Port:            80,
		Synchronous:     true,
		MaxChildSockets: MaxChildSockets,
		CommandTimeout:  100 * time.Second, // USOCR/USOLI 最坏情况
		StopTimeout:     10 * time.Second,
		PollInterval:    10 * time.Millisecond,
		LogLevel:        "info",
	}
}

// Normalize 用默认值补齐未设置的字段
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.Device == "" {
		c.Device = d.Device
	}
	if c.BaudRate <= 0 {
		c.BaudRate = d.BaudRate
	}
	if c.MaxChildSockets <= 0 {
		c.MaxChildSockets = d.MaxChildSockets
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = d.CommandTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = d.StopTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return c
}

// Validate 检查配置是否可用
func (c Config) Validate() error {
	if c.Port == 0 {
		return ErrInvalidArgument
	}
	if c.MaxChildSockets < 0 {
		return ErrInvalidArgument
	}
	return nil
}
