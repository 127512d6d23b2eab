package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/fbot/emotions-bridge/pkg/head"
	"github.com/fbot/emotions-bridge/pkg/serialport"
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Emotions Bridge Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf("Ignoring %s: %v", opts.Config, err)))
		cfg = head.DefaultConfig()
	}

	ports, err := serialport.List()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
	}

	port := cfg.Serial.Port
	if len(ports) > 0 {
		port = ports[0]
	}
	options := []huh.Option[string]{huh.NewOption(cfg.Serial.Port+" (current)", cfg.Serial.Port)}
	for _, p := range ports {
		if p != cfg.Serial.Port {
			options = append(options, huh.NewOption(p, p))
		}
	}

	baud := strconv.Itoa(cfg.Serial.Baud)
	paramsFile := cfg.Params.File

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the face board on?").
				Options(options...).
				Value(&port),
			huh.NewInput().
				Title("Baud rate").
				Value(&baud).
				Validate(func(s string) error {
					if n, err := strconv.Atoi(s); err != nil || n <= 0 {
						return fmt.Errorf("enter a positive number")
					}
					return nil
				}),
			huh.NewInput().
				Title("Motor parameter file").
				Value(&paramsFile).
				Validate(func(s string) error {
					_, err := head.LoadParams(s, cfg.Params.Node)
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	cfg.Serial.Port = port
	cfg.Serial.Baud, _ = strconv.Atoi(baud)
	cfg.Params.File = paramsFile

	save := func() error { return cfg.SaveTo(opts.Config) }
	if opts.Config == head.DefaultConfigFile {
		save = cfg.Save
	}
	if err := save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start the bridge with: " + headerStyle.Render("emotions-bridge run"))
	return nil
}
