package linear

import "math"

type Options struct {
	Epochs       int
	LearningRate float64
}

// Model holds the fitted coefficients plus the per-feature scaling that
// was applied during training. Raw clinical features span several orders
// of magnitude (flags vs treatment cost), so inputs are standardized
// before the linear term.
type Model struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
	Means        []float64 `json:"means"`
	Scales       []float64 `json:"scales"`
}

type Metrics struct {
	Loss     float64
	Accuracy float64
}

func Train(samples [][]float64, labels []float64, opts Options) (Model, Metrics) {
	if opts.Epochs <= 0 {
		opts.Epochs = 300
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.1
	}

	n := len(samples)
	if n == 0 {
		return Model{}, Metrics{}
	}
	featureCount := len(samples[0])

	means, scales := standardization(samples, featureCount)
	scaled := make([][]float64, n)
	for i, sample := range samples {
		scaled[i] = scale(sample, means, scales)
	}

	weights := make([]float64, featureCount)
	var bias float64

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		grad := make([]float64, featureCount)
		var biasGrad float64
		for i, sample := range scaled {
			prediction := sigmoid(dot(weights, sample) + bias)
			residual := prediction - labels[i]
			for j := 0; j < featureCount; j++ {
				grad[j] += residual * sample[j]
			}
			biasGrad += residual
		}
		for j := 0; j < featureCount; j++ {
			weights[j] -= opts.LearningRate * grad[j] / float64(n)
		}
		bias -= opts.LearningRate * biasGrad / float64(n)
	}

	model := Model{Bias: bias, Coefficients: weights, Means: means, Scales: scales}
	loss, accuracy := evaluate(model, samples, labels)
	return model, Metrics{Loss: loss, Accuracy: accuracy}
}

func (m Model) PredictProb(sample []float64) float64 {
	if len(m.Coefficients) == 0 {
		return 0
	}
	scaled := scale(sample, m.Means, m.Scales)
	return sigmoid(dot(m.Coefficients, scaled) + m.Bias)
}

func standardization(samples [][]float64, featureCount int) ([]float64, []float64) {
	n := float64(len(samples))
	means := make([]float64, featureCount)
	scales := make([]float64, featureCount)

	for _, sample := range samples {
		for j, v := range sample {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, sample := range samples {
		for j, v := range sample {
			d := v - means[j]
			scales[j] += d * d
		}
	}
	for j := range scales {
		scales[j] = math.Sqrt(scales[j] / n)
		if scales[j] == 0 {
			scales[j] = 1
		}
	}
	return means, scales
}

func scale(sample, means, scales []float64) []float64 {
	out := make([]float64, len(sample))
	for j, v := range sample {
		out[j] = (v - means[j]) / scales[j]
	}
	return out
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func evaluate(model Model, samples [][]float64, labels []float64) (float64, float64) {
	var loss float64
	var correct int
	for i, sample := range samples {
		prediction := model.PredictProb(sample)
		loss += -labels[i]*math.Log(prediction+1e-9) - (1-labels[i])*math.Log(1-prediction+1e-9)
		if (prediction >= 0.5 && labels[i] == 1) || (prediction < 0.5 && labels[i] == 0) {
			correct++
		}
	}
	loss /= float64(len(samples))
	accuracy := float64(correct) / float64(len(samples))
	return loss, accuracy
}
