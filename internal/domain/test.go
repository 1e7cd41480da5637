package domain

// TestCase represents a single discovered test case
type TestCase struct {
	ID      string  // Unique identifier, e.g. com.example.LoginTest#testLogin
	Weight  float64 // Expected duration in seconds, 0 when unknown
	Ignored bool    // Discovered with a skip annotation; reported but never run
}

// Chunk is one shard: an ordered list of test case identifiers
type Chunk []string

// ShardSet is the partitioner output for one test target
type ShardSet struct {
	Chunks  []Chunk  `json:"chunks"`
	Ignored []string `json:"ignored"`
}

// Size returns the number of chunks
func (s ShardSet) Size() int {
	return len(s.Chunks)
}

// TestCases flattens all chunks in chunk order
func (s ShardSet) TestCases() []string {
	var ids []string
	for _, chunk := range s.Chunks {
		ids = append(ids, chunk...)
	}
	return ids
}
