// Package cli holds the terminal helpers shared by dtwasr commands:
// structured output (YAML, JSON, JSON lines) and lipgloss styles for
// rendering recognition results.
//
//	cli.Output(utterances, cli.OutputOptions{Format: cli.FormatJSON})
//
//	styles := cli.NewStyles(cli.DefaultTheme)
//	fmt.Println(styles.RenderUtterance(u))
package cli
