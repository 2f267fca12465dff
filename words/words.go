/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package words supplies secret words for new rounds.
package words

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
)

//go:embed words.txt
var defaultWords string

var ErrEmptyList = errors.New("word list is empty")

type List struct {
	words []string
	last  string
}

// Default returns the built-in list.
func Default() *List {
	l, err := Parse(strings.NewReader(defaultWords))
	if err != nil {
		panic("embedded word list: " + err.Error())
	}
	return l
}

// Load reads a list from a file containing one word per line. Blank lines
// and lines starting with '#' are ignored.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return l, nil
}

func Parse(r io.Reader) (*List, error) {
	var words []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.TrimSpace(scanner.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}

		key := strings.ToLower(w)
		if seen[key] {
			continue
		}
		seen[key] = true

		words = append(words, w)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return New(words)
}

func New(words []string) (*List, error) {
	if len(words) == 0 {
		return nil, ErrEmptyList
	}

	return &List{words: words}, nil
}

func (l *List) Len() int {
	return len(l.words)
}

// Pick returns a random word, never the same word twice in a row unless
// the list holds only one.
func (l *List) Pick() string {
	w := l.words[rand.IntN(len(l.words))]
	for len(l.words) > 1 && w == l.last {
		w = l.words[rand.IntN(len(l.words))]
	}

	l.last = w

	return w
}
