// gsmserver 在蜂窝模组上监听 TCP 端口，回显或广播收到的数据
package main

import (
	"os"

	"github.com/charmbracelet/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error("gsmserver", "err", err)
		os.Exit(1)
	}
}
