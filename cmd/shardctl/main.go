// shardctl 是 shardkit 的运维命令行：查看拓扑、建表、生成 ID、读写映射。
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
