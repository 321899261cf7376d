package utils

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
)

func NewRekognitionClient(cfg aws.Config) *rekognition.Client {
	return rekognition.NewFromConfig(cfg)
}
