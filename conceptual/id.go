package conceptual

// DeploymentID names one tag deployment on one animal.
// Tracks are routed per deployment.
type DeploymentID string

const UnknownDeployment DeploymentID = "unknown"

func (d DeploymentID) String() string {
	return string(d)
}

func (d DeploymentID) Empty() bool {
	return d == ""
}
