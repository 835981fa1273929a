package llm

import (
	"context"
	"strings"

	"github.com/Morwran/yagpt"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// YandexClient talks to YandexGPT. The folder decides the model, so the
// model argument of Generate is ignored.
type YandexClient struct {
	ya       yagpt.YaGPTFace
	iamToken string
}

func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	// Create IAM token from OAuth token
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init yandex iam")
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create iam token")
	}

	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init yagpt")
	}

	return &YandexClient{
		ya:       ya,
		iamToken: resp.IamToken,
	}, nil
}

func (c *YandexClient) Generate(ctx context.Context, _ string, messages []Message) (Response, error) {
	yaMsgs := make([]yagpt.Message, 0, len(messages))
	for _, m := range messages {
		yaMsgs = append(yaMsgs, yagpt.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := c.ya.CompletionWithCtx(ctx, c.iamToken, yaMsgs)
	if err != nil {
		return Response{}, &UpstreamError{Provider: "yandex", Message: yandexMessage(err), Err: err}
	}
	if resp == nil || len(resp.Alternatives) == 0 || strings.TrimSpace(resp.Alternatives[0].Message.Content) == "" {
		return Response{}, &UpstreamError{Provider: "yandex", Message: NoCompletionMessage}
	}
	return Response{
		Content:          resp.Alternatives[0].Message.Content,
		Model:            yagpt.YaModelLite,
		PromptTokens:     int(resp.Usage.InputTextTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}, nil
}

// yandexMessage returns the service's wording for request-level rejections.
// Transport and server-side failures carry no user-presentable text and
// yield "".
func yandexMessage(err error) string {
	var se interface{ GRPCStatus() *status.Status }
	if !errors.As(err, &se) {
		return ""
	}
	st := se.GRPCStatus()
	switch st.Code() {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange,
		codes.PermissionDenied, codes.Unauthenticated, codes.ResourceExhausted, codes.NotFound:
		return st.Message()
	default:
		return ""
	}
}
