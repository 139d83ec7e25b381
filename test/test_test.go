package test_test

import (
	"errors"
	"testing"

	"github.com/55utah/fc-core/test"
)

func TestExpectations(t *testing.T) {
	var err error
	test.ExpectSuccess(t, err)
	test.ExpectSuccess(t, nil)
	test.ExpectSuccess(t, true)
	test.ExpectFailure(t, false)
	test.ExpectFailure(t, errors.New("failure"))

	test.ExpectEquality(t, uint16(0x8000), 0x8000)
	test.ExpectEquality(t, "abc", "abc")
	test.ExpectInequality(t, byte(1), 2)
	test.DemandEquality(t, 3, 3)
	test.DemandSuccess(t, true)
}
