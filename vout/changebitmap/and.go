package changebitmap

import (
	"fmt"
	"strings"
)

type And []Condition

var _ Condition = (And)(nil)

func (s And) String() string {
	var result []string
	for _, cond := range s {
		result = append(result, cond.String())
	}
	return fmt.Sprintf("(%s)", strings.Join(result, "&"))
}

func (s And) Match(m *Bitmap) bool {
	for _, item := range s {
		if !item.Match(m) {
			return false
		}
	}
	return true
}
