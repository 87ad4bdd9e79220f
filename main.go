package main

import "github.com/winstonacademy/crm-gateway/cmd"

func main() {
	cmd.Execute()
}
