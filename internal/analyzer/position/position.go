// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package position

import "fmt"

// A Position is the location in the source program that a statement appears.
type Position struct {
	Filename string // Source filename in which this statement appears.
	Line     int    // 1-based line in the source for this statement.
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}
