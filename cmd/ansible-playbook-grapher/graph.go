package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	grapher "github.com/haidaraM/ansible-playbook-grapher"
	"github.com/haidaraM/ansible-playbook-grapher/internal/renderer"
)

var graphCmd = &cobra.Command{
	Use:   "graph <playbook>...",
	Short: "Render the execution graph of one or more playbooks",
	Long: `Builds the execution graph of each playbook and renders it with the
chosen renderer. Playbooks that fail to build do not stop the others:
their errors are reported and the command exits non-zero after
rendering everything that succeeded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGraph,
}

func init() {
	addBuildFlags(graphCmd)
	graphCmd.Flags().String("renderer", string(renderer.FormatGraphviz),
		fmt.Sprintf("Renderer: %s, %s or %s", renderer.FormatGraphviz, renderer.FormatMermaid, renderer.FormatJSON))
	graphCmd.Flags().StringP("output-filename", "o", "",
		"Output filename without extension (default: the first playbook's name); '-' writes text formats to stdout")
	graphCmd.Flags().BoolP("save-dot-file", "s", false, "Keep the intermediate DOT file next to the SVG")
	graphCmd.Flags().String("open-protocol-handler", "default",
		"Make nodes clickable in the SVG: default, vscode or custom")
	graphCmd.Flags().StringToString("open-protocol-custom-formats", nil,
		"Custom open protocol URI templates, requires file=... and folder=... with {path}, {line}, {column} placeholders")
	graphCmd.Flags().String("renderer-mermaid-directive", "", "Mermaid directive prepended to the chart")
	graphCmd.Flags().String("renderer-mermaid-orientation", "", "Mermaid flowchart orientation (default LR)")
	graphCmd.Flags().Bool("view", false, "Open the rendered artifact with the platform opener")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("renderer")
	format, err := renderer.ParseFormat(formatName)
	if err != nil {
		return err
	}

	result, err := grapher.Graph(cmd.Context(), buildOptions(cmd, args))
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	cons := newConsole(cmd)
	if len(result.Playbooks) > 0 {
		artifact, err := renderArtifact(cmd, format, result)
		if err != nil {
			return err
		}
		if artifact != "" {
			cons.Successf("The graph has been exported to %s", artifact)
			if view, _ := cmd.Flags().GetBool("view"); view {
				if err := openArtifact(artifact); err != nil {
					cons.Warnf("Cannot open %s: %v", artifact, err)
				}
			}
		}
	}

	for path, buildErr := range result.Failed {
		cons.Errorf("Building %s failed: %v", path, buildErr)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d playbook(s) failed to build", len(result.Failed))
	}
	return nil
}

// renderArtifact writes the chosen format and returns the artifact
// path, empty when the output went to stdout.
func renderArtifact(cmd *cobra.Command, format renderer.Format, result *grapher.Result) (string, error) {
	output, _ := cmd.Flags().GetString("output-filename")
	if output == "" {
		base := filepath.Base(result.Playbooks[0].Name())
		output = strings.TrimSuffix(base, filepath.Ext(base))
	}

	switch format {
	case renderer.FormatJSON:
		data, err := renderer.JSON(result.Playbooks)
		if err != nil {
			return "", err
		}
		return writeTextArtifact(cmd, output+".json", append(data, '\n'))

	case renderer.FormatMermaid:
		directive, _ := cmd.Flags().GetString("renderer-mermaid-directive")
		orientation, _ := cmd.Flags().GetString("renderer-mermaid-orientation")
		out := renderer.Mermaid(result.Playbooks, renderer.MermaidOptions{
			Directive:   directive,
			Orientation: orientation,
		})
		return writeTextArtifact(cmd, output+".mmd", []byte(out))

	default:
		handlerName, _ := cmd.Flags().GetString("open-protocol-handler")
		customFormats, _ := cmd.Flags().GetStringToString("open-protocol-custom-formats")
		links, err := renderer.NewLinkHandler(handlerName, customFormats)
		if err != nil {
			return "", err
		}
		dotSource := renderer.DOT(result.Playbooks, renderer.GraphvizOptions{Links: links})
		if output == "-" {
			_, err := os.Stdout.WriteString(dotSource)
			return "", err
		}
		if save, _ := cmd.Flags().GetBool("save-dot-file"); save {
			if err := os.WriteFile(output+".dot", []byte(dotSource), 0o644); err != nil {
				return "", err
			}
		}
		svgPath := output + ".svg"
		if err := renderer.RenderSVG(cmd.Context(), dotSource, svgPath); err != nil {
			return "", err
		}
		return svgPath, nil
	}
}

func writeTextArtifact(cmd *cobra.Command, path string, data []byte) (string, error) {
	output, _ := cmd.Flags().GetString("output-filename")
	if output == "-" {
		_, err := os.Stdout.Write(data)
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// openArtifact hands the file to the platform opener.
func openArtifact(path string) error {
	opener := "xdg-open"
	switch runtime.GOOS {
	case "darwin":
		opener = "open"
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", path).Start()
	}
	return exec.Command(opener, path).Start()
}
