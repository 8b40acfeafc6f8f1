package core

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/crypto/blake2b"

	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/record"
	"github.com/illarion/upm/internal/store"
)

const (
	BinarySampleSize   = 8192 // Bytes to sample for text/binary detection
	BinaryThresholdPct = 10   // Max % non-printable chars for text values
	maskKeySize        = 32
)

// DetectFileType determines if a value is likely text or binary.
// Returns true if the value appears to be text.
//
// Detection heuristic (in order):
//  1. Null bytes present → binary
//  2. Invalid UTF-8 → binary
//  3. >10% non-printable control chars → binary
func DetectFileType(data []byte) bool {
	if len(data) == 0 {
		return true
	}

	if bytes.IndexByte(data, 0) != -1 {
		return false
	}

	sample := data[:min(len(data), BinarySampleSize)]
	if !utf8.Valid(sample) {
		return false
	}

	nonPrintable := 0
	for _, b := range sample {
		// Allow common whitespace: space, tab, newline, carriage return
		if b < 32 && b != 9 && b != 10 && b != 13 {
			nonPrintable++
		}
		if b == 127 {
			nonPrintable++
		}
	}

	threshold := len(sample) * BinaryThresholdPct / 100
	return nonPrintable <= threshold
}

// CompareFiles reports whether two rendered stores are identical
func CompareFiles(a, b []byte) bool {
	ha := blake2b.Sum256(a)
	hb := blake2b.Sum256(b)
	return bytes.Equal(ha[:], hb[:])
}

// renderer turns a store into text. Hidden secrets are replaced by a tag
// keyed with a random per-renderer key: equal secrets get equal tags within
// one diff and nothing can be learned from a tag afterwards.
type renderer struct {
	showSecrets bool
	maskKey     []byte
}

func newRenderer(showSecrets bool) (*renderer, error) {
	r := &renderer{showSecrets: showSecrets}
	if !showSecrets {
		key, err := crypto.GenerateRandom(maskKeySize)
		if err != nil {
			return nil, err
		}
		r.maskKey = key
	}
	return r, nil
}

func (r *renderer) close() {
	crypto.ClearBytes(r.maskKey)
}

// Render formats st as text, one block per account in name order
func Render(st *store.Store, showSecrets bool) ([]byte, error) {
	r, err := newRenderer(showSecrets)
	if err != nil {
		return nil, err
	}
	defer r.close()
	return r.render(st), nil
}

func (r *renderer) render(st *store.Store) []byte {
	var b bytes.Buffer
	opts := st.Options()
	fmt.Fprintf(&b, "revision: %d\n", st.Revision())
	fmt.Fprintf(&b, "remote: %s\n", opts.RemoteLocation)
	fmt.Fprintf(&b, "auth entry: %s\n", opts.AuthEntry)

	for _, a := range st.Accounts() {
		r.account(&b, a)
		a.Destroy()
	}
	return b.Bytes()
}

func (r *renderer) account(b *bytes.Buffer, a *record.Account) {
	fmt.Fprintf(b, "\n[%s]\n", a.Name)
	fmt.Fprintf(b, "login: %s\n", value(a.Login))
	fmt.Fprintf(b, "secret: %s\n", r.secret(a.Secret))
	fmt.Fprintf(b, "url: %s\n", value(a.URL))

	if len(a.Notes) == 0 {
		b.WriteString("notes:\n")
		return
	}
	if !DetectFileType(a.Notes) {
		fmt.Fprintf(b, "notes: %s\n", value(a.Notes))
		return
	}
	b.WriteString("notes:\n")
	for _, line := range strings.Split(strings.TrimRight(string(a.Notes), "\n"), "\n") {
		fmt.Fprintf(b, "  %s\n", line)
	}
}

func (r *renderer) secret(v []byte) string {
	if r.showSecrets {
		return value(v)
	}
	if len(v) == 0 {
		return ""
	}
	h, _ := blake2b.New256(r.maskKey)
	h.Write(v)
	return "<hidden " + hex.EncodeToString(h.Sum(nil)[:4]) + ">"
}

func value(v []byte) string {
	if !DetectFileType(v) {
		return fmt.Sprintf("<binary, %d bytes>", len(v))
	}
	return strings.ReplaceAll(string(v), "\n", `\n`)
}

// Diff renders both stores and returns a unified diff from a to b, empty
// when they render the same
func Diff(a, b *store.Store, labelA, labelB string, showSecrets bool) (string, error) {
	r, err := newRenderer(showSecrets)
	if err != nil {
		return "", err
	}
	defer r.close()

	return GenerateUnifiedDiff(labelA, labelB, r.render(a), r.render(b)), nil
}

// GenerateUnifiedDiff returns a unified line diff between two texts with
// diffContext lines of context around each change
func GenerateUnifiedDiff(labelA, labelB string, a, b []byte) string {
	if CompareFiles(a, b) {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better output
	ca, cb, lineArray := dmp.DiffLinesToChars(string(a), string(b))
	diffs := dmp.DiffMain(ca, cb, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []diffLine
	for _, d := range diffs {
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text != "" {
				lines = append(lines, diffLine{op: d.Type, text: strings.TrimSuffix(text, "\n")})
			}
		}
	}

	hunks := groupHunks(lines)
	if len(hunks) == 0 {
		return ""
	}

	var result strings.Builder
	fmt.Fprintf(&result, "--- %s\n", labelA)
	fmt.Fprintf(&result, "+++ %s\n", labelB)
	for _, h := range hunks {
		h.write(&result, lines)
	}
	return result.String()
}

const diffContext = 3

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
}

// hunk is a range of lines plus the line numbers it starts at in each text
type hunk struct {
	start, end     int
	aStart, bStart int
}

func groupHunks(lines []diffLine) []hunk {
	var hunks []hunk
	aLine, bLine := 0, 0
	aAt := make([]int, len(lines))
	bAt := make([]int, len(lines))
	for i, l := range lines {
		aAt[i], bAt[i] = aLine, bLine
		if l.op != diffmatchpatch.DiffInsert {
			aLine++
		}
		if l.op != diffmatchpatch.DiffDelete {
			bLine++
		}
	}

	for i, l := range lines {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		start := max(0, i-diffContext)
		end := min(len(lines), i+diffContext+1)
		if n := len(hunks); n > 0 && start <= hunks[n-1].end {
			hunks[n-1].end = end
			continue
		}
		hunks = append(hunks, hunk{start: start, end: end, aStart: aAt[start], bStart: bAt[start]})
	}
	return hunks
}

func (h hunk) write(w *strings.Builder, lines []diffLine) {
	aCount, bCount := 0, 0
	for _, l := range lines[h.start:h.end] {
		if l.op != diffmatchpatch.DiffInsert {
			aCount++
		}
		if l.op != diffmatchpatch.DiffDelete {
			bCount++
		}
	}
	fmt.Fprintf(w, "@@ -%s +%s @@\n", hunkRange(h.aStart, aCount), hunkRange(h.bStart, bCount))

	for _, l := range lines[h.start:h.end] {
		switch l.op {
		case diffmatchpatch.DiffInsert:
			w.WriteString("+")
		case diffmatchpatch.DiffDelete:
			w.WriteString("-")
		default:
			w.WriteString(" ")
		}
		w.WriteString(l.text)
		w.WriteString("\n")
	}
}

// hunkRange formats a range the way diff -u does: an empty range names
// the line before it
func hunkRange(start, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", start)
	}
	if count == 1 {
		return fmt.Sprintf("%d", start+1)
	}
	return fmt.Sprintf("%d,%d", start+1, count)
}
