package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSecretsAPI struct {
	mock.Mock
}

func (m *mockSecretsAPI) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, aws.ToString(params.SecretId))
	out, _ := args.Get(0).(*secretsmanager.GetSecretValueOutput)
	return out, args.Error(1)
}

func TestSecretsManagerClient_GetSecretString(t *testing.T) {
	ctx := context.Background()
	const arn = "arn:aws:secretsmanager:us-east-1:000000000000:secret:eoa-key"

	tests := []struct {
		name        string
		arnValue    string
		fallback    string
		setupMock   func(m *mockSecretsAPI)
		want        string
		wantErr     bool
		errorString string
	}{
		{
			name:     "plain text secret",
			arnValue: arn,
			setupMock: func(m *mockSecretsAPI) {
				m.On("GetSecretValue", ctx, arn).Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String("0xabc")}, nil)
			},
			want: "0xabc",
		},
		{
			name:     "single key json secret",
			arnValue: arn,
			setupMock: func(m *mockSecretsAPI) {
				m.On("GetSecretValue", ctx, arn).Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"private_key":"0xdef"}`)}, nil)
			},
			want: "0xdef",
		},
		{
			name:     "multi key json secret is returned raw",
			arnValue: arn,
			setupMock: func(m *mockSecretsAPI) {
				m.On("GetSecretValue", ctx, arn).Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"a":"1","b":"2"}`)}, nil)
			},
			want: `{"a":"1","b":"2"}`,
		},
		{
			name:     "fetch error falls back to env var",
			arnValue: arn,
			fallback: "0xfallback",
			setupMock: func(m *mockSecretsAPI) {
				m.On("GetSecretValue", ctx, arn).Return(nil, errors.New("access denied"))
			},
			want: "0xfallback",
		},
		{
			name:      "no arn uses env var",
			fallback:  "0xdirect",
			setupMock: func(m *mockSecretsAPI) {},
			want:      "0xdirect",
		},
		{
			name:        "nothing configured",
			setupMock:   func(m *mockSecretsAPI) {},
			wantErr:     true,
			errorString: "secret not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_KEY_ARN", tt.arnValue)
			t.Setenv("TEST_KEY", tt.fallback)

			api := &mockSecretsAPI{}
			tt.setupMock(api)
			client := NewSecretsManagerClientWithAPI(api)

			got, err := client.GetSecretString(ctx, "TEST_KEY_ARN", "TEST_KEY")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorString)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			api.AssertExpectations(t)
		})
	}
}
