package store_test

import (
	"database/sql/driver"
	"reflect"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

// valueArg matches a statement argument once both sides are reduced to driver
// values, so a uuid.UUID matches its string form and a named string type
// matches a plain string.
type valueArg struct {
	want any
}

func (a valueArg) Match(got any) bool {
	want, err := driver.DefaultParameterConverter.ConvertValue(a.want)
	if err != nil {
		return false
	}
	have, err := driver.DefaultParameterConverter.ConvertValue(got)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(want, have)
}

// args wraps expected statement arguments in valueArg. Matchers such as
// pgxmock.AnyArg pass through.
func args(values ...any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if m, ok := v.(pgxmock.Argument); ok {
			out[i] = m
			continue
		}
		out[i] = valueArg{want: v}
	}
	return out
}
