package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/fbot/emotions-bridge/pkg/handshake"
	"github.com/fbot/emotions-bridge/pkg/head"
	"github.com/fbot/emotions-bridge/pkg/protocol"
)

type SendCommand struct {
	Simulate bool `long:"simulate" description:"Talk to a simulated face board"`
	Args     struct {
		Emotion string `positional-arg-name:"emotion" description:"Emotion to show (asks when omitted)"`
	} `positional-args:"yes"`
}

func (c *SendCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fatal("%v", err)
	}
	log := newLogger(os.Stderr)

	reg, err := loadRegistry(cfg)
	if err != nil {
		fatal("%v", err)
	}

	emotion := c.Args.Emotion
	if emotion == "" {
		emotion = pickEmotion(reg)
	}

	port, err := openPort(cfg, c.Simulate, log)
	if err != nil {
		fatal("Could not open serial port %s: %v", cfg.Serial.Port, err)
	}
	defer port.Close()

	b := newBridge(cfg, reg, port, &log)
	ctx := context.Background()

	if res := b.SendMotorsConfig(ctx); !res.OK() {
		return reportFailure("configure motors", res)
	}
	res := b.SendEmotion(ctx, emotion)
	if !res.OK() {
		return reportFailure("send "+emotion, res)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("Face shows %s", emotion)) +
		dimStyle.Render(fmt.Sprintf(" (%d attempt(s), %s)", res.Attempts, res.Duration.Round(time.Millisecond))))
	return nil
}

func reportFailure(what string, res handshake.Result) error {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Could not %s after %d attempt(s)", what, res.Attempts)))
	if protocol.Retryable(res.Err) {
		fmt.Fprintln(os.Stderr, dimStyle.Render("The board did not acknowledge. Check the cable, the port and the board power."))
	}
	return res.Err
}

func pickEmotion(reg *head.Registry) string {
	emotions := reg.Emotions()
	if len(emotions) == 0 {
		fatal("No emotion is defined for every motor")
	}

	options := make([]huh.Option[string], 0, len(emotions))
	for _, e := range emotions {
		options = append(options, huh.NewOption(e, e))
	}

	var emotion string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which emotion?").
				Options(options...).
				Value(&emotion),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return emotion
}
