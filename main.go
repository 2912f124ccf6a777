/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/f1-race-predictor/cmd"

func main() {
	cmd.Execute()
}
