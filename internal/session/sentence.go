package session

// Sentence accumulates fingerspelled letters into text. It is not safe for concurrent
// use; Session guards it.
type Sentence struct {
	text string
}

// AddLetter appends a recognized letter.
func (s *Sentence) AddLetter(letter string) {
	s.text += letter
}

// AddSpace appends a word break.
func (s *Sentence) AddSpace() {
	s.text += " "
}

// Clear empties the sentence and returns what it held.
func (s *Sentence) Clear() string {
	text := s.text
	s.text = ""
	return text
}

// Text returns the current sentence.
func (s *Sentence) Text() string {
	return s.text
}
