package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/meysamhadeli/codai-impact/constants/lipgloss"
)

// ConfirmPrompt asks a yes/no question and reports whether the user answered yes.
// End of input counts as "no".
func ConfirmPrompt(reader *bufio.Reader, w io.Writer, question string) (bool, error) {
	fmt.Fprint(w, lipgloss.BlueSky.Render(question+" (y/N): "))

	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
