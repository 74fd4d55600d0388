package driver

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/viperlang/viper/pkg/vm"
)

// ParseDebugScript reads a scripted debugger command file (spec.md §6.5):
// one command per line, blank lines ignored, leading/trailing whitespace
// trimmed, unknown commands reported to warnOut as "[DEBUG] ignored: <line>"
// and skipped without aborting the rest of the file.
func ParseDebugScript(r io.Reader, warnOut io.Writer) []vm.DebugCmd {
	var cmds []vm.DebugCmd
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, ok := parseDebugLine(line)
		if !ok {
			if warnOut != nil {
				fmt.Fprintf(warnOut, "[DEBUG] ignored: %s\n", line)
			}
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func parseDebugLine(line string) (vm.DebugCmd, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return vm.DebugCmd{}, false
	}
	switch fields[0] {
	case "continue":
		if len(fields) != 1 {
			return vm.DebugCmd{}, false
		}
		return vm.DebugCmd{Kind: vm.CmdContinue}, true
	case "step":
		if len(fields) == 1 {
			return vm.DebugCmd{Kind: vm.CmdStep, Count: 1}, true
		}
		if len(fields) == 2 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n <= 0 {
				return vm.DebugCmd{}, false
			}
			return vm.DebugCmd{Kind: vm.CmdStep, Count: n}, true
		}
		return vm.DebugCmd{}, false
	case "step-over":
		if len(fields) != 1 {
			return vm.DebugCmd{}, false
		}
		return vm.DebugCmd{Kind: vm.CmdStepOver}, true
	case "step-out":
		if len(fields) != 1 {
			return vm.DebugCmd{}, false
		}
		return vm.DebugCmd{Kind: vm.CmdStepOut}, true
	}
	return vm.DebugCmd{}, false
}
