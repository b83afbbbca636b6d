package bluetooth

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// DeviceSelector picks one device out of a discovered list, or
// declines. There is no error in this contract; a bad pick is simply
// "nothing selected".
type DeviceSelector interface {
	SelectDevice(devices []Device) (int, bool)
}

// ConsoleSelector prompts the operator on the terminal for an index
// into the discovered device list.
type ConsoleSelector struct {
	In  io.Reader
	Out io.Writer
}

func NewConsoleSelector() *ConsoleSelector {
	return &ConsoleSelector{In: os.Stdin, Out: os.Stdout}
}

func (s *ConsoleSelector) SelectDevice(devices []Device) (int, bool) {
	if len(devices) == 0 {
		return 0, false
	}

	fmt.Fprintln(s.Out, "Discovered devices:")
	for i, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(s.Out, "[%d] %s (%s)\n", i, name, d.Address)
	}
	fmt.Fprint(s.Out, "Select target device number: ")

	line, err := bufio.NewReader(s.In).ReadString('\n')
	if err != nil && line == "" {
		log.Printf("SELECT: no input: %v", err)
		return 0, false
	}

	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		log.Printf("SELECT: invalid input: %v", err)
		return 0, false
	}
	if choice < 0 || choice >= len(devices) {
		log.Printf("SELECT: index %d out of range", choice)
		return 0, false
	}
	return choice, true
}
