package main

import (
	"fmt"
	"os"

	"github.com/mwantia/linkfilter/cmd/linkfilter/cli"
	"github.com/mwantia/linkfilter/cmd/linkfilter/cli/client"
	"github.com/mwantia/linkfilter/cmd/linkfilter/cli/server"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	info := cli.VersionInfo{
		Version: version,
		Commit:  commit,
	}
	root := cli.NewRootCommand(info)

	root.AddCommand(cli.NewVersionCommand(info))

	root.AddCommand(server.NewAgentCommand())
	root.AddCommand(server.NewConfigCommand())

	root.AddCommand(client.NewFilterCommand())
	root.AddCommand(client.NewLinksCommand())

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
