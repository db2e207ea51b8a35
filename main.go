package main

import "github.com/klytics/invoicechat/cmd"

func main() {
	cmd.Execute()
}
