package main

import "github.com/SapphireAmoeba5/rasm/cmd"

func main() {
	cmd.Execute()
}
