package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/product-craft/internal/chat"
	"github.com/fpang/product-craft/internal/cli"
	"github.com/fpang/product-craft/internal/editor"
	"github.com/fpang/product-craft/internal/store"
)

var (
	inputFlag       string
	toolFlag        string
	instructionFlag string
	xFlag           int
	yFlag           int
	outputFlag      string
	saveDirFlag     string
	projectFlag     string
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Apply one AI edit to a product photo",
	Long: `Edit loads a product photo, applies one AI tool and writes the result.

Remote tools: localized-edit (needs --x/--y and --instruction), filter and
adjustment (need --instruction), remove-background, enhance (optional
--instruction). Hotspot coordinates are source-image pixels.

Missing inputs are prompted for. Without --input a file picker opens.`,
	Run: runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&inputFlag, "input", "i", "", "Product photo to edit")
	editCmd.Flags().StringVarP(&toolFlag, "tool", "t", "", "Tool id (localized-edit, filter, adjustment, remove-background, enhance)")
	editCmd.Flags().StringVar(&instructionFlag, "instruction", "", "Free-text instruction for the tool")
	editCmd.Flags().IntVar(&xFlag, "x", -1, "Hotspot x in source pixels (localized-edit)")
	editCmd.Flags().IntVar(&yFlag, "y", -1, "Hotspot y in source pixels (localized-edit)")
	editCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output path (default <input>-<tool>.<ext>)")
	editCmd.Flags().StringVar(&saveDirFlag, "save-dir", "", "Also save the result into this project archive directory")
	editCmd.Flags().StringVar(&projectFlag, "project", "", "Project name used with --save-dir")
}

func runEdit(cmd *cobra.Command, args []string) {
	path := inputFlag
	if path == "" {
		picked, err := cli.PickImage()
		if err != nil && !errors.Is(err, cli.ErrCanceled) {
			log.Warn().Err(err).Msg("File picker unavailable")
		}
		path = picked
	}
	if path == "" {
		path = cli.Prompt(os.Stdin, os.Stdout, "Image path", "")
	}
	path, err := cli.ResolveImagePath(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid input image")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read image")
	}

	ctx := context.Background()
	apiKey, _ := cli.InitGemini(ctx, textModel())
	backend := chat.NewGeminiImageClient(apiKey).WithModel(imageModel())

	opts := []editor.SessionOption{
		editor.WithOrchestratorOptions(editor.WithTimeout(appConfig.Session.EditTimeout)),
	}
	if saveDirFlag != "" {
		archive, err := store.NewDirArchive(saveDirFlag)
		if err != nil {
			log.Fatal().Err(err).Str("dir", saveDirFlag).Msg("Failed to open archive directory")
		}
		opts = append(opts, editor.WithArchive(archive))
	}
	if projectFlag != "" {
		opts = append(opts, editor.WithProjectName(projectFlag))
	}
	session := editor.NewSession(backend, opts...)

	original, err := session.LoadImage(data, "")
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Not a supported image")
	}

	toolID := toolFlag
	if toolID == "" {
		toolID = cli.Prompt(os.Stdin, os.Stdout, "Tool ("+remoteToolList()+")", string(editor.ToolEnhance))
	}
	tool, err := session.SelectTool(editor.ToolID(toolID))
	if err != nil {
		log.Fatal().Err(err).Msg("Unknown tool")
	}
	if !tool.Remote() {
		log.Fatal().Str("tool", string(tool.ID)).Msgf("%s is an on-canvas tool; choose one of: %s", tool.Label, remoteToolList())
	}

	if tool.Capability.RequiresPoint() {
		res := original.Resolution()
		x, y := xFlag, yFlag
		if x < 0 || y < 0 {
			x = promptInt(fmt.Sprintf("Hotspot x (0-%d)", res.Width-1), res.Width/2)
			y = promptInt(fmt.Sprintf("Hotspot y (0-%d)", res.Height-1), res.Height/2)
		}
		// Displayed at natural size, so the click maps to itself.
		hotspot, _, err := session.RegisterClick(
			editor.Point{X: float64(x), Y: float64(y)},
			editor.Size{Width: float64(res.Width), Height: float64(res.Height)},
			editor.Resolution{},
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid hotspot")
		}
		log.Debug().Str("hotspot", hotspot.String()).Msg("Hotspot set")
	}

	instruction := instructionFlag
	if instruction == "" && tool.Capability.RequiresText() {
		instruction = cli.Prompt(os.Stdin, os.Stdout, "Instruction", "")
	}
	if instruction != "" && tool.Capability.AcceptsText() {
		if err := session.SetInstruction(instruction); err != nil {
			log.Fatal().Err(err).Msg("Failed to set instruction")
		}
	}

	fmt.Println()
	fmt.Println("============================================")
	fmt.Printf("Tool: %s\n", tool.Label)
	fmt.Printf("Image: %s (%dx%d, %s)\n", filepath.Base(path), original.Resolution().Width, original.Resolution().Height, cli.FormatBytes(original.Size()))
	fmt.Printf("Model: %s\n", backend.Model())
	if instruction != "" {
		fmt.Printf("Instruction: %s\n", instruction)
	}
	fmt.Println("--------------------------------------------")

	start := time.Now()
	result, err := session.SubmitEdit(ctx)
	elapsed := time.Since(start)
	if err != nil {
		kind, _ := editor.KindOf(err)
		log.Fatal().Err(err).Stringer("kind", kind).Dur("duration", elapsed).Msg("Edit failed")
	}

	out := outputFlag
	if out == "" {
		out = defaultOutputPath(path, tool.ID, result.Extension())
	}
	if err := os.WriteFile(out, result.Bytes(), 0o644); err != nil {
		log.Fatal().Err(err).Str("path", out).Msg("Failed to write result")
	}

	fmt.Printf("Done in %s: %s (%dx%d, %s)\n", cli.FormatDurationShort(elapsed), out,
		result.Resolution().Width, result.Resolution().Height, cli.FormatBytes(result.Size()))

	if saveDirFlag != "" {
		receipt, err := session.Save(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Save failed")
		}
		fmt.Printf("Saved to project %s: %s\n", receipt.ProjectID, receipt.Location)
	}
}

// defaultOutputPath puts the result next to the input: mug.jpg -> mug-enhance.png.
func defaultOutputPath(input string, tool editor.ToolID, ext string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "-" + string(tool) + ext
}

func remoteToolList() string {
	var ids []string
	for _, t := range editor.Tools() {
		if t.Remote() {
			ids = append(ids, string(t.ID))
		}
	}
	return strings.Join(ids, ", ")
}

func promptInt(label string, fallback int) int {
	raw := cli.Prompt(os.Stdin, os.Stdout, label, fmt.Sprint(fallback))
	var n int
	if _, err := fmt.Sscan(raw, &n); err != nil {
		log.Warn().Str("input", raw).Msg("Not a number, using default")
		return fallback
	}
	return n
}
