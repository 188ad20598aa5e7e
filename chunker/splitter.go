package chunker

import "strings"

// Splitter defaults for the raw-content fallback path.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separators in descending preference: paragraph, line, word, character.
var separators = []string{"\n\n", "\n", " ", ""}

// SplitText splits text into overlapping chunks using the default size and
// overlap.
func SplitText(text string) []string {
	return Split(text, DefaultChunkSize, DefaultChunkOverlap)
}

// Split recursively splits text on the strongest separator present,
// merging the pieces back into chunks of at most chunkSize characters with
// roughly overlap characters carried between adjacent chunks.
func Split(text string, chunkSize, overlap int) []string {
	return splitRecursive(text, separators, chunkSize, overlap)
}

func splitRecursive(text string, seps []string, chunkSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	// Pick the first separator that occurs in the text; "" always matches
	// and means a hard character split.
	sep := ""
	var rest []string
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	if sep == "" {
		return hardSplit(text, chunkSize, overlap)
	}

	parts := strings.Split(text, sep)

	var chunks []string
	var pending []string // pieces accumulated for the current chunk
	pendingLen := 0

	flush := func() {
		if pendingLen == 0 {
			return
		}
		chunk := strings.Join(pending, sep)
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		// Keep a tail of pieces within the overlap budget as the start of
		// the next chunk.
		var kept []string
		keptLen := 0
		for i := len(pending) - 1; i >= 0; i-- {
			l := len(pending[i]) + len(sep)
			if keptLen+l > overlap {
				break
			}
			kept = append([]string{pending[i]}, kept...)
			keptLen += l
		}
		pending = kept
		pendingLen = keptLen
	}

	for _, part := range parts {
		if len(part) > chunkSize {
			flush()
			pending = nil
			pendingLen = 0
			chunks = append(chunks, splitRecursive(part, rest, chunkSize, overlap)...)
			continue
		}
		addLen := len(part)
		if pendingLen > 0 {
			addLen += len(sep)
		}
		if pendingLen+addLen > chunkSize {
			flush()
		}
		pending = append(pending, part)
		pendingLen += addLen
	}
	if pendingLen > 0 {
		chunk := strings.Join(pending, sep)
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// hardSplit cuts text into fixed windows on rune boundaries.
func hardSplit(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	step := chunkSize - overlap
	if step < 1 {
		step = chunkSize
	}
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
