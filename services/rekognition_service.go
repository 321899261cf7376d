package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"recipebox/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// ErrLabelsDisabled is returned when no label detector is configured.
var ErrLabelsDisabled = errors.New("label detection is disabled")

type labelDetector interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// RekognitionService proposes tags for a recipe picture.
type RekognitionService struct {
	client        labelDetector
	maxLabels     int32
	minConfidence float32
}

func NewRekognitionService(client labelDetector) *RekognitionService {
	return &RekognitionService{client: client, maxLabels: 10, minConfidence: 75}
}

// SuggestTags returns detected labels as tag values: lower-cased, unique and
// short enough to be stored as a tag. Order follows detection confidence.
func (r *RekognitionService) SuggestTags(ctx context.Context, image []byte) ([]string, error) {
	if r == nil || r.client == nil {
		return nil, ErrLabelsDisabled
	}
	if len(image) == 0 {
		return nil, FieldErrors{"picture": {"The submitted file is empty."}}
	}

	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(r.maxLabels),
		MinConfidence: aws.Float32(r.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("detect labels: %w", err)
	}

	seen := map[string]struct{}{}
	tags := make([]string, 0, len(out.Labels))
	for _, l := range out.Labels {
		if l.Name == nil {
			continue
		}
		tag := models.NormalizeTag(*l.Name)
		if tag == "" || utf8.RuneCountInString(tag) > models.TagMaxLen {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags, nil
}
