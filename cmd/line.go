package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/peterh/liner"
)

var Line *LineState

type LineState struct {
	*liner.State
}

func (ln *LineState) HistoryLoad(filepath string) error {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return err
	}
	_, err = ln.ReadHistory(bytes.NewReader(content))
	return err
}

func (ln *LineState) HistorySave(filepath string) error {
	var buf bytes.Buffer
	if _, err := ln.WriteHistory(&buf); err != nil {
		return err
	}
	return os.WriteFile(filepath, buf.Bytes(), 0644)
}

func (ln *LineState) ClearScreen() error {
	_, err := fmt.Fprint(os.Stdout, "\x1b[H\x1b[2J")
	return err
}

func init() {
	Line = &LineState{liner.NewLiner()}
	Line.SetCtrlCAborts(true)
}
