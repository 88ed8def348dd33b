package bedrockclient

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
)

// Ref: https://docs.aws.amazon.com/bedrock/latest/userguide/model-parameters-titan-embed-text.html

type amazonEmbeddingInput struct {
	InputText string `json:"inputText"`
}

type amazonEmbeddingOutput struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

func createAmazonEmbeddings(ctx context.Context,
	client InvokeModelAPI,
	modelID string,
	texts []string,
) ([][]float32, error) {
	results := make([][]float32, 0, len(texts))
	for _, text := range texts {
		body, err := json.Marshal(amazonEmbeddingInput{InputText: text})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		resp, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(modelID),
			Accept:      aws.String("application/json"),
			ContentType: aws.String("application/json"),
			Body:        body,
		})
		if err != nil {
			return nil, errors.Wrap(err, "bedrock: failed to create embedding")
		}
		var output amazonEmbeddingOutput
		if err = json.Unmarshal(resp.Body, &output); err != nil {
			return nil, errors.Wrap(err, "bedrock: failed to decode embedding")
		}
		results = append(results, output.Embedding)
	}
	return results, nil
}
