package main

import "easyshifts/backend/cmd/server/cmd"

func main() {
	cmd.Execute()
}
