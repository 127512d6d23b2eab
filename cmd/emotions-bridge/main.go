package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config   string `short:"c" long:"config" default:"emotions-bridge.yaml" description:"Bridge configuration file"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`

	Run      RunCommand      `command:"run" description:"Drive the face board from emotion notifications"`
	Send     SendCommand     `command:"send" description:"Configure the board and send a single emotion"`
	Emotions EmotionsCommand `command:"emotions" description:"Show the motor values of every emotion"`
	Ports    PortsCommand    `command:"ports" description:"List serial ports"`
	Setup    SetupCommand    `command:"setup" description:"Pick the serial port and write the configuration file"`
	Publish  PublishCommand  `command:"publish" description:"Publish the demo emotion cycle to redis"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "emotions-bridge - drive the robot face motors from emotion changes"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
