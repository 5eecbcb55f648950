package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidQuantity, "invalid quantity")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidQuantity, err.Code)
	suite.Equal("invalid quantity", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeOrderNotFound, "order %s not found", "abc-123")
	suite.NotNil(err)
	suite.Equal(ErrCodeOrderNotFound, err.Code)
	suite.Equal("order abc-123 not found", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeQuoteFetchFailed, "failed to fetch quotes", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeQuoteFetchFailed, err.Code)
	suite.Equal("failed to fetch quotes", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeHistoricalDataFailed, cause, "no historical data for symbol: %s", "AAPL")
	suite.NotNil(err)
	suite.Equal(ErrCodeHistoricalDataFailed, err.Code)
	suite.Equal("no historical data for symbol: AAPL", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidQuantity, "invalid quantity")
	suite.Equal("[102] invalid quantity", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeOrderNotFound, "order not found", cause)
	suite.Equal("[200] order not found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeOrderNotFound, "order not found", cause)
	suite.Equal(cause, errors.Unwrap(err))
	suite.True(errors.Is(err, cause))
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeMissingLimitPrice, "limit orders require a price")
	suite.Equal(ErrCodeMissingLimitPrice, GetCode(err))

	plain := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(plain))
}

func (suite *ErrorTestSuite) TestGetCodeWrappedDeep() {
	inner := New(ErrCodeOverFill, "execution exceeds open quantity")
	outer := fmt.Errorf("engine: %w", inner)
	suite.Equal(ErrCodeOverFill, GetCode(outer))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeInvalidQuantity, "invalid quantity")
	suite.True(HasCode(err, ErrCodeInvalidQuantity))
	suite.False(HasCode(err, ErrCodeOrderNotFound))
}

func (suite *ErrorTestSuite) TestIsValidation() {
	suite.True(IsValidation(New(ErrCodeInvalidQuantity, "bad quantity")))
	suite.True(IsValidation(New(ErrCodeMissingLimitPrice, "no price")))
	suite.False(IsValidation(New(ErrCodeOrderNotFound, "not found")))
	suite.False(IsValidation(errors.New("plain")))
}
