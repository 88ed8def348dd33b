package llms_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/mocks/mockllms"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestTextParts(t *testing.T) {
	t.Parallel()
	type args struct {
		role  llms.Role
		parts []string
	}
	tests := []struct {
		name string
		args args
		want llms.Message
	}{
		{
			"basics",
			args{
				llms.RoleHuman,
				[]string{"a", "b", "c"},
			},
			llms.MessageFromParts(llms.RoleHuman, llms.TextPart("a"), llms.TextPart("b"), llms.TextPart("c")),
		},
		{
			"empty",
			args{
				llms.RoleAI,
				nil,
			},
			llms.Message{Role: llms.RoleAI, Parts: []llms.ContentPart{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mc := llms.MessageFromTextParts(tt.args.role, tt.args.parts...)
			assert.Equal(t, tt.want, mc)
		})
	}
}

func Test_Message_GetContent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		msg     llms.Message
		content string
		text    string
	}{
		{
			"parts",
			llms.MessageFromTextParts(llms.RoleHuman, "a", "b", "c"),
			"a\nb\nc\n",
			"a\nb\nc",
		},
		{
			"trailing_new_line",
			llms.MessageFromTextParts(llms.RoleHuman, "a\n", "b\n"),
			"a\nb\n",
			"a\nb",
		},
		{
			"empty",
			llms.MessageFromTextParts(llms.RoleSystem),
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.content, tt.msg.GetContent())
			assert.Equal(t, tt.text, tt.msg.GetText())
		})
	}
}

func Test_GenerateFromSinglePrompt(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			require.Len(t, messages, 1)
			assert.Equal(t, llms.RoleHuman, messages[0].Role)
			assert.Equal(t, "hello", messages[0].GetText())
			opts := llms.NewCallOptions(options...)
			assert.Equal(t, 0.3, opts.Temperature)
			return &llms.ContentResponse{
				Choices: []*llms.ContentChoice{{Content: "world"}},
			}, nil
		})

	text, err := llms.GenerateFromSinglePrompt(ctx, model, "hello", llms.WithTemperature(0.3))
	require.NoError(t, err)
	assert.Equal(t, "world", text)

	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{}, nil)
	_, err = llms.GenerateFromSinglePrompt(ctx, model, "hello")
	assert.ErrorIs(t, err, llms.ErrEmptyResponse)

	expErr := errors.New("rate limited")
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, expErr)
	_, err = llms.GenerateFromSinglePrompt(ctx, model, "hello")
	assert.ErrorIs(t, err, expErr)
}
