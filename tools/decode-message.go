//go:build ignore

// Decode-message is a standalone helper for inspecting captured
// protocol traffic. It takes hex-encoded messages (as arguments or
// one per line from a file) and prints the decoded header fields and
// body.
//
// Usage:
//
//	go run tools/decode-message.go 0820 2000
//	go run tools/decode-message.go -f capture.hex
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/rfwave/netsdr/internal/protocol"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Println("Usage: decode-message <hex> [<hex> ...]")
		fmt.Println("       decode-message -f <file-with-hex-lines>")
		os.Exit(1)
	}

	var inputs []string
	if args[0] == "-f" {
		if len(args) < 2 {
			fmt.Println("Error: -f requires a file argument")
			os.Exit(1)
		}
		file, err := os.Open(args[1])
		if err != nil {
			fmt.Printf("Error opening file: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
				inputs = append(inputs, line)
			}
		}
	} else {
		inputs = args
	}

	for i, input := range inputs {
		data, err := hex.DecodeString(strings.ReplaceAll(input, " ", ""))
		if err != nil {
			fmt.Printf("[%d] invalid hex: %v\n", i+1, err)
			continue
		}
		decodeOne(i+1, data)
	}
}

func decodeOne(num int, data []byte) {
	res := protocol.Decode(data)

	fmt.Printf("[%d] %d bytes\n", num, len(data))
	fmt.Printf("    kind:     %s\n", res.Kind)
	if res.Kind.IsData() {
		fmt.Printf("    sequence: %d\n", res.Sequence)
	} else {
		fmt.Printf("    item:     %s\n", res.Item)
	}
	fmt.Printf("    ok:       %v\n", res.OK)
	if len(res.Body) > 0 {
		fmt.Printf("    body:     %s\n", hex.EncodeToString(res.Body))
	}

	if res.OK && res.Kind.IsData() {
		if samples, err := protocol.ExtractSamples(16, res.Body); err == nil {
			preview := samples
			if len(preview) > 8 {
				preview = preview[:8]
			}
			fmt.Printf("    samples:  %d (16-bit), first %v\n", len(samples), preview)
		}
	}
	fmt.Println()
}
