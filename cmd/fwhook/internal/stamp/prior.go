package stamp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrCorrupt marks a prior fragment whose counter line exists but cannot be parsed,
// or a fragment that exists but cannot be read.
var ErrCorrupt = errors.New("corrupt build record")

// State classifies the outcome of reading the previous fragment.
type State int

const (
	// Absent means there is no prior record: no file, or no counter line.
	Absent State = iota
	// Found means the counter was parsed.
	Found
	// Corrupt means a record exists but its counter could not be recovered.
	Corrupt
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Found:
		return "found"
	case Corrupt:
		return "corrupt"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Prior is the result of reading the previous fragment.
type Prior struct {
	State  State
	Number int   // valid when State == Found
	Err    error // wraps ErrCorrupt when State == Corrupt
}

// ReadPrior reads the fragment at path and extracts the counter from the
// first line containing marker.
func ReadPrior(path, marker string) Prior {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Prior{State: Absent}
	}
	if err != nil {
		return Prior{State: Corrupt, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	return ParsePrior(data, marker)
}

// ParsePrior extracts the counter from fragment content. Only the first line
// containing marker is considered.
func ParsePrior(data []byte, marker string) Prior {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.Contains(line, marker) {
			continue
		}
		n, err := parseCounterLine(line)
		if err != nil {
			return Prior{State: Corrupt, Err: fmt.Errorf("%w: line %d: %v", ErrCorrupt, lineNo, err)}
		}
		return Prior{State: Found, Number: n}
	}
	if err := scanner.Err(); err != nil {
		return Prior{State: Corrupt, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	return Prior{State: Absent}
}

// parseCounterLine takes the value between the first and second '=' of
// "int buildNumber = 41;", tolerating whitespace and trailing ';'.
func parseCounterLine(line string) (int, error) {
	fields := strings.Split(line, "=")
	if len(fields) < 2 {
		return 0, fmt.Errorf("no '=' in %q", line)
	}
	value := strings.TrimSpace(fields[1])
	value = strings.TrimSpace(strings.Trim(value, ";"))
	if value == "" {
		return 0, fmt.Errorf("empty counter in %q", line)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("counter %q is not an integer", value)
	}
	if n == math.MaxInt {
		return 0, fmt.Errorf("counter %d cannot be incremented", n)
	}
	return n, nil
}
