package changebitmap

import "fmt"

type Static bool

var _ Condition = Static(false)

func (v Static) String() string {
	return fmt.Sprintf("%t", bool(v))
}

func (v Static) Match(*Bitmap) bool {
	return bool(v)
}
