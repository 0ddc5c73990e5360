package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		in      string
		want    Topic
		wantErr bool
	}{
		{"general", TopicGeneral, false},
		{"NEWS", TopicNews, false},
		{" finance ", TopicFinance, false},
		{"", TopicGeneral, false},
		{"sports", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTopic(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidTopic, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, Params{MaxResults: 5, Topic: TopicNews}.Validate(10))
	assert.NoError(t, Params{MaxResults: 50, Topic: TopicGeneral}.Validate(0))
	assert.ErrorIs(t, Params{MaxResults: 11, Topic: TopicGeneral}.Validate(10), ErrMaxResultsExceeded)
	assert.ErrorIs(t, Params{MaxResults: 3, Topic: "weather"}.Validate(10), ErrInvalidTopic)
	assert.Error(t, Params{MaxResults: 0}.Validate(10))
}
