package main

import "github.com/nikhilbhutani/audioreader/cmd/readerctl/cmd"

func main() {
	cmd.Execute()
}
