package fixture

import (
	"go.uber.org/multierr"

	"github.com/wippyai/camlbridge/describe"
)

//go:generate go test ../.. -run TestGenerate_Fixture -update

// Descriptions returns the descriptions fixture_gen.go is generated from,
// in generation order.
func Descriptions() ([]*describe.Type, error) {
	point, err1 := describe.Record[Point]()
	path, err2 := describe.Record[Path]()
	shape, err3 := describe.Union[Shape]("shape",
		describe.Case[Dot](),
		describe.Case[Circle](),
		describe.Case[Rect](),
	)
	command, err4 := describe.Union[Command]("command",
		describe.Open(),
		describe.Case[Start](),
		describe.Case[SetSpeed](describe.WithTag("set_speed")),
		describe.Case[Move](),
	)
	if err := multierr.Combine(err1, err2, err3, err4); err != nil {
		return nil, err
	}
	return []*describe.Type{point, path, shape, command}, nil
}
