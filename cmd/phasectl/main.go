package main

import "buildflow/cmd/phasectl/root"

func main() {
	root.Execute()
}
