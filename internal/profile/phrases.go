package profile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const maxPDFPhrases = 64

var extraneousWhitespace = regexp.MustCompile(`\s+`)

// LoadPhrases reads phrases from a local text or PDF file, or from an
// http(s) URL served through the on-disk cache.
func LoadPhrases(ctx context.Context, source string) ([]string, error) {
	local := source
	ext := strings.ToLower(filepath.Ext(source))
	if isRemote(source) {
		cache, err := newSourceCache(nil)
		if err != nil {
			return nil, err
		}
		local, err = cache.Fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		if parsed, err := url.Parse(source); err == nil {
			ext = strings.ToLower(path.Ext(parsed.Path))
		}
	}

	var (
		phrases []string
		err     error
	)
	if ext == ".pdf" {
		phrases, err = readPDFPhrases(local)
	} else {
		phrases, err = readTextPhrases(local)
	}
	if err != nil {
		return nil, err
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrNoPhrases)
	}
	return phrases, nil
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// readTextPhrases returns one phrase per non-blank line. Lines starting with
// '#' are comments.
func readTextPhrases(p string) ([]string, error) {
	file, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open phrases: %w", err)
	}
	defer file.Close()
	return scanPhrases(file)
}

func scanPhrases(r io.Reader) ([]string, error) {
	var phrases []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read phrases: %w", err)
	}
	return phrases, nil
}

func readPDFPhrases(p string) ([]string, error) {
	file, reader, err := pdf.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var builder strings.Builder
	if _, err := io.Copy(&builder, content); err != nil {
		return nil, err
	}
	text := extraneousWhitespace.ReplaceAllString(builder.String(), " ")
	sentences := splitSentences(text)
	if len(sentences) > maxPDFPhrases {
		sentences = sentences[:maxPDFPhrases]
	}
	return sentences, nil
}

func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var sentences []string
	start := 0
	for idx, r := range text {
		if idx < start {
			continue
		}
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := idx + utf8.RuneLen(r)
		if segment := strings.TrimSpace(text[start:end]); segment != "" {
			sentences = append(sentences, segment)
		}
		start = end
		for start < len(text) {
			next, size := utf8.DecodeRuneInString(text[start:])
			if !unicode.IsSpace(next) {
				break
			}
			start += size
		}
	}
	if start < len(text) {
		if segment := strings.TrimSpace(text[start:]); segment != "" {
			sentences = append(sentences, segment)
		}
	}
	return sentences
}
