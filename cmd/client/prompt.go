package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hitushen/localbrowser/internal/discovery"
)

// promptChooser 在终端列出候选地址，读取用户输入的序号。
func promptChooser(in io.Reader, out io.Writer) discovery.Chooser {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, candidates []string) (string, error) {
		fmt.Fprintln(out, "Several server addresses were found:")
		for i, c := range candidates {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, c)
		}
		for {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			fmt.Fprintf(out, "Choose an address [1-%d] (default 1): ", len(candidates))
			line, err := reader.ReadString('\n')
			line = strings.TrimSpace(line)
			if line == "" {
				if err != nil && err != io.EOF {
					return "", err
				}
				return candidates[0], nil
			}
			n, convErr := strconv.Atoi(line)
			if convErr == nil && n >= 1 && n <= len(candidates) {
				return candidates[n-1], nil
			}
			fmt.Fprintf(out, "invalid choice %q\n", line)
			if err != nil {
				return "", fmt.Errorf("read choice: %w", err)
			}
		}
	}
}
