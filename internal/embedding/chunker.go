package embedding

// Chunk splits text into a deterministic sliding window. Every chunk after
// the first overlaps the previous one by exactly overlap characters, and
// concatenating the chunks minus their overlaps reconstructs the input.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 || len(text) == 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	if len(text) <= size {
		return []string{text}
	}

	step := size - overlap
	var chunks []string
	for start := 0; ; start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
