package open

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Zuo-Peng/cfgmml2db/internal/index"
)

// OpenCommand opens the most recently ingested dump containing command in
// $EDITOR, positioned at the command's first line.
func OpenCommand(db *index.DB, command string) error {
	src, err := db.CommandSource(command)
	if err != nil {
		return fmt.Errorf("get command source: %w", err)
	}
	if src == nil {
		return fmt.Errorf("command not found: %s", command)
	}

	if _, err := os.Stat(src.Path); err != nil {
		return fmt.Errorf("file not found: %s", src.Path)
	}

	lineNum := src.FirstLine
	if lineNum < 1 {
		lineNum = 1
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}

	return openInEditor(editor, src.Path, lineNum)
}

// editorArgs builds the argument list that makes editor jump to lineNum.
func editorArgs(editor, filePath string, lineNum int) []string {
	switch {
	case strings.Contains(editor, "vim") || strings.Contains(editor, "nvim") || strings.Contains(editor, "nano"):
		return []string{"+" + strconv.Itoa(lineNum), filePath}
	case strings.Contains(editor, "code"):
		return []string{"--goto", filePath + ":" + strconv.Itoa(lineNum)}
	case strings.Contains(editor, "less"):
		return []string{"+" + strconv.Itoa(lineNum), filePath}
	default:
		return []string{filePath}
	}
}

func openInEditor(editor, filePath string, lineNum int) error {
	cmd := exec.Command(editor, editorArgs(editor, filePath, lineNum)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
