// Package fixture holds Go types together with procedure pairs generated
// for them, so generated code is compiled and run by the tests.
package fixture

type Point struct {
	X int
	Y int
}

type Path struct {
	Name   string
	Points []Point
	Width  *float64
	Closed bool
}

type Shape interface{ isShape() }

type Dot struct{}

type Circle struct{ Radius float64 }

type Rect struct{ W, H int }

func (Dot) isShape()    {}
func (Circle) isShape() {}
func (Rect) isShape()   {}

type Command interface{ isCommand() }

type Start struct{}

type SetSpeed struct{ Speed int }

type Move struct{ X, Y int }

func (Start) isCommand()    {}
func (SetSpeed) isCommand() {}
func (*Move) isCommand()    {}
