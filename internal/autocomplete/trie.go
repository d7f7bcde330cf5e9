// Package autocomplete provides a prefix word index over named items.
//
// Items register the strings they should be findable by; the index
// tokenizes them into lowercase words stored in a trie. A query is
// tokenized the same way and matches the intersection of items that
// have at least one word per query token with that token as prefix.
package autocomplete

import "strings"

// node is a trie node keyed by lowercase runes.
type node struct {
	children  map[rune]*node
	isWordEnd bool
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// Index maps word prefixes to the ids of items containing them.
type Index struct {
	root *node

	// itemsByWord maps each indexed word to the set of item ids that
	// contain it. A word leaves the trie when this set empties.
	itemsByWord map[string]map[string]struct{}

	// wordsByItem remembers the words each item contributed so
	// RemoveItem needs only the id.
	wordsByItem map[string]map[string]struct{}
}

// NewIndex creates an empty autocomplete index.
func NewIndex() *Index {
	return &Index{
		root:        newNode(),
		itemsByWord: make(map[string]map[string]struct{}),
		wordsByItem: make(map[string]map[string]struct{}),
	}
}

// Tokenize splits text on whitespace into lowercase non-empty words.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

// AddItem indexes an item under every word of every given term.
// Re-adding an id first drops its previous words, so AddItem doubles
// as the update path after a rename.
func (ix *Index) AddItem(id string, terms ...string) {
	if _, exists := ix.wordsByItem[id]; exists {
		ix.RemoveItem(id)
	}

	words := make(map[string]struct{})
	for _, term := range terms {
		for _, w := range Tokenize(term) {
			words[w] = struct{}{}
		}
	}
	ix.wordsByItem[id] = words

	for w := range words {
		items, ok := ix.itemsByWord[w]
		if !ok {
			items = make(map[string]struct{})
			ix.itemsByWord[w] = items
			ix.insertWord(w)
		}
		items[id] = struct{}{}
	}
}

// RemoveItem drops an item from the index. Words no other item uses
// are removed from the trie, pruning branches that end up dead.
func (ix *Index) RemoveItem(id string) {
	words, ok := ix.wordsByItem[id]
	if !ok {
		return
	}
	delete(ix.wordsByItem, id)

	for w := range words {
		items := ix.itemsByWord[w]
		delete(items, id)
		if len(items) == 0 {
			delete(ix.itemsByWord, w)
			ix.removeWord(w)
		}
	}
}

// Search returns the ids of items matching every token of the query:
// for each token, an item matches if it contains a word with that
// token as prefix; the result is the intersection across tokens.
// An empty query matches nothing; callers substitute "all items"
// where that is the desired reading. Ordering is unspecified.
func (ix *Index) Search(query string) []string {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	var matched map[string]struct{}
	for _, token := range tokens {
		tokenMatches := make(map[string]struct{})
		for _, w := range ix.wordsWithPrefix(token) {
			for id := range ix.itemsByWord[w] {
				tokenMatches[id] = struct{}{}
			}
		}
		if matched == nil {
			matched = tokenMatches
			continue
		}
		for id := range matched {
			if _, ok := tokenMatches[id]; !ok {
				delete(matched, id)
			}
		}
		if len(matched) == 0 {
			return nil
		}
	}

	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	return ids
}

// insertWord adds a word to the trie.
func (ix *Index) insertWord(word string) {
	current := ix.root
	for _, r := range word {
		child, ok := current.children[r]
		if !ok {
			child = newNode()
			current.children[r] = child
		}
		current = child
	}
	current.isWordEnd = true
}

// removeWord clears a word's end marker and prunes nodes that are no
// longer on the path of any remaining word.
func (ix *Index) removeWord(word string) {
	runes := []rune(word)
	path := make([]*node, 0, len(runes)+1)

	current := ix.root
	path = append(path, current)
	for _, r := range runes {
		child, ok := current.children[r]
		if !ok {
			return
		}
		current = child
		path = append(path, current)
	}

	current.isWordEnd = false

	// Walk back up, dropping nodes with no children and no word end.
	for i := len(path) - 1; i > 0; i-- {
		n := path[i]
		if n.isWordEnd || len(n.children) > 0 {
			break
		}
		delete(path[i-1].children, runes[i-1])
	}
}

// wordsWithPrefix collects every indexed word starting with prefix.
func (ix *Index) wordsWithPrefix(prefix string) []string {
	current := ix.root
	for _, r := range prefix {
		child, ok := current.children[r]
		if !ok {
			return nil
		}
		current = child
	}

	var words []string
	collectWords(current, prefix, &words)
	return words
}

// collectWords appends every word under n, prefixed by the path that
// led to n.
func collectWords(n *node, prefix string, out *[]string) {
	if n.isWordEnd {
		*out = append(*out, prefix)
	}
	for r, child := range n.children {
		collectWords(child, prefix+string(r), out)
	}
}
