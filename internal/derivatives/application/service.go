package application

import (
	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
)

// DerivativesService 衍生品分析门面服务。
type DerivativesService struct {
	Pricing *PricingService
	Surface *SurfaceService
}

// NewDerivativesService 构造函数。
func NewDerivativesService(
	chains domain.ChainProvider,
	repo domain.SurfaceRepository,
	cache domain.SurfaceCache,
	publisher domain.EventPublisher,
) *DerivativesService {
	return &DerivativesService{
		Pricing: NewPricingService(publisher),
		Surface: NewSurfaceService(chains, repo, cache, publisher),
	}
}
