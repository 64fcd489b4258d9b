package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
)

var (
	commandPattern   = regexp.MustCompile(`(\w+)\s*\(([^()]*)\)`)
	separatorPattern = regexp.MustCompile(`^[\s;,]*$`)
)

// A Script is the result of parsing a command file. Malformed lines do not
// stop the parse; they are collected in Malformed, each wrapping
// vm.ErrMalformedCommand.
type Script struct {
	Commands  []Command
	Malformed []error
}

// ParseFile reads a script from the file system.
func ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads commands in the form name(arg, arg). A line may hold several
// commands separated by blanks or semicolons. Blank lines and lines starting
// with # are skipped. The returned error is only set when
// reading fails.
func Parse(r io.Reader) (*Script, error) {
	s := &Script{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cmds, errs := parseLine(line, lineNo)
		s.Commands = append(s.Commands, cmds...)
		s.Malformed = append(s.Malformed, errs...)
	}

	if err := scanner.Err(); err != nil {
		return s, err
	}

	return s, nil
}

// parseLine reads every command on the line. Text between the commands may
// only be blanks, commas or semicolons.
func parseLine(line string, lineNo int) ([]Command, []error) {
	matches := commandPattern.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 || !onlySeparators(line, matches) {
		return nil, []error{fmt.Errorf("line %d: cannot parse %q: %w",
			lineNo, line, vm.ErrMalformedCommand)}
	}

	var (
		cmds []Command
		errs []error
	)

	for _, m := range matches {
		cmd, err := parseCommand(line[m[2]:m[3]], line[m[4]:m[5]], lineNo)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		cmds = append(cmds, cmd)
	}

	return cmds, errs
}

func onlySeparators(line string, matches [][]int) bool {
	prev := 0
	for _, m := range matches {
		if !separatorPattern.MatchString(line[prev:m[0]]) {
			return false
		}

		prev = m[1]
	}

	return separatorPattern.MatchString(line[prev:])
}

func parseCommand(name, args string, lineNo int) (Command, error) {
	cmd := Command{
		Name: strings.ToLower(name),
		Line: lineNo,
	}

	argStr := strings.TrimSpace(args)
	if argStr != "" {
		for _, field := range strings.Split(argStr, ",") {
			v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
			if err != nil {
				return Command{}, fmt.Errorf(
					"line %d: argument %q is not an integer: %w",
					lineNo, strings.TrimSpace(field), vm.ErrMalformedCommand)
			}

			cmd.Args = append(cmd.Args, v)
		}
	}

	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}

	return cmd, nil
}
