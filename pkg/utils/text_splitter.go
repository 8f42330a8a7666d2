package utils

import "unicode"

// SplitText splits text into chunks of at most chunkSize runes, each
// overlapping the previous one by overlap runes. A chunk ends at the last
// whitespace in its final fifth when there is one, so words stay whole.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	totalLen := len(runes)
	if chunkSize <= 0 || totalLen <= chunkSize {
		return []string{text}
	}

	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var chunks []string
	for start := 0; start < totalLen; {
		end := start + chunkSize
		if end >= totalLen {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		floor := end - chunkSize/5
		for i := end; i > floor; i-- {
			if unicode.IsSpace(runes[i-1]) {
				end = i
				break
			}
		}

		chunks = append(chunks, string(runes[start:end]))

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}
