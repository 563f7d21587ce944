// Package prompt asks the user for a symbol and lets them pick among
// several search matches.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/coingecko"
)

// ErrCancelled is returned when the user quits or input ends.
var ErrCancelled = errors.New("prompt cancelled")

// MaxChoices limits how many matches are listed.
const MaxChoices = 10

const maxAttempts = 3

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a prompter.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the trimmed, non-empty answer.
func (p *Prompter) Ask(question string) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		fmt.Fprintf(p.out, "%s ", question)
		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
	}
	return "", ErrCancelled
}

// ChoiceLabel formats a coin as shown in the selection list.
func ChoiceLabel(c coingecko.Coin) string {
	rank := "N/A"
	if c.MarketCapRank > 0 {
		rank = strconv.Itoa(c.MarketCapRank)
	}
	return fmt.Sprintf("%s (%s) - Rank #%s", strings.ToUpper(c.Symbol), c.Name, rank)
}

// SelectCoin lists coins and returns the chosen one. A single coin is
// returned without asking; an empty answer picks the first entry.
func (p *Prompter) SelectCoin(coins []coingecko.Coin) (coingecko.Coin, error) {
	switch len(coins) {
	case 0:
		return coingecko.Coin{}, ErrCancelled
	case 1:
		return coins[0], nil
	}
	if len(coins) > MaxChoices {
		coins = coins[:MaxChoices]
	}

	fmt.Fprintln(p.out, "Multiple tokens found. Please select one:")
	for i, c := range coins {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, ChoiceLabel(c))
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		fmt.Fprintf(p.out, "Choice [1-%d, q to quit] (1): ", len(coins))
		line, err := p.readLine()
		if err != nil {
			return coingecko.Coin{}, err
		}
		if line == "" {
			return coins[0], nil
		}
		if strings.EqualFold(line, "q") {
			return coingecko.Coin{}, ErrCancelled
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(coins) {
			return coins[n-1], nil
		}
		fmt.Fprintf(p.out, "Invalid choice %q.\n", line)
	}
	return coingecko.Coin{}, ErrCancelled
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
