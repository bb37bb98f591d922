// Package stacks declares the two deployable units: a demo storage stack and
// the disaster-recovery product service.
package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// DemoStorageStackProps configures the demo storage stack.
type DemoStorageStackProps struct {
	awscdk.StackProps
}

// NewDemoStorageStack declares a single demo bucket. The bucket is torn down
// with the stack, including its contents, and rejects plain-HTTP access.
func NewDemoStorageStack(scope constructs.Construct, id string, props *DemoStorageStackProps) awscdk.Stack {
	var sprops awscdk.StackProps
	if props != nil {
		sprops = props.StackProps
	}
	stack := awscdk.NewStack(scope, &id, &sprops)

	awss3.NewBucket(stack, jsii.String("DemoBucket"), &awss3.BucketProps{
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
		EnforceSSL:        jsii.Bool(true),
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
	})

	return stack
}
