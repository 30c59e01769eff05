package main

import "github.com/dnviti/k8s-useful-metrics/cmd"

func main() {
	cmd.Execute()
}
