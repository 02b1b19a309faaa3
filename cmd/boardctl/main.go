package main

import "github.com/KevinKickass/OpenBoardCore/cmd/boardctl/cmd"

func main() {
	cmd.Execute()
}
