package main

import "github.com/davarch/pipelines-dashboard/cmd/pipelines-dashboard/cli"

func main() {
	cli.Execute()
}
