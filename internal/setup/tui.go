// Package setup provides the interactive terminal wizard that generates a
// simulator config file.
package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/brokersim/brokersim/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the result
// to config.gen.yaml.
func RunTUI() error {
	var (
		listenAddr         string
		publishIntervalStr string
		openingBalanceStr  string
		walDir             string
		confirm            bool
	)

	// defaults
	listenAddr = config.DefaultListenAddr
	publishIntervalStr = config.DefaultPublishInterval.String()
	openingBalanceStr = config.DefaultOpeningBalance
	walDir = config.DefaultWalDir

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("BROKERSIM CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Set up your demo brokerage in a few steps.\n"))

	fmt.Println(stepStyle.Render("STEP 1: WEB SERVER"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("host:port the dashboard and API bind to").
				Value(&listenAddr).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("listen address cannot be empty")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BROKERSIM CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: MARKET CADENCE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Publish Interval").
				Description("Duration string (e.g. 2s, 3s, 500ms)").
				Value(&publishIntervalStr).
				Validate(func(s string) error {
					d, err := time.ParseDuration(s)
					if err != nil {
						return err
					}
					if d <= 0 {
						return fmt.Errorf("interval must be positive")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BROKERSIM CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: ACCOUNTS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Opening Balance").
				Description("Demo funds credited to every new account").
				Value(&openingBalanceStr).
				Validate(func(s string) error {
					d, err := decimal.NewFromString(s)
					if err != nil {
						return err
					}
					if d.IsNegative() {
						return fmt.Errorf("opening balance must not be negative")
					}
					return nil
				}),
			huh.NewInput().
				Title("Transaction Journal Directory").
				Value(&walDir),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BROKERSIM CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Listen: %s\nCadence: %s\nOpening Balance: %s\nJournal: %s\n",
		listenAddr, publishIntervalStr, openingBalanceStr, walDir,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	publishInterval, _ := time.ParseDuration(publishIntervalStr)

	cfg := config.FileConfig{
		ListenAddr:      listenAddr,
		PublishInterval: publishInterval,
		OpeningBalance:  openingBalanceStr,
		RecentTxLimit:   config.DefaultRecentTxLimit,
		WalDir:          walDir,
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render("Saved " + filename))
	return nil
}
