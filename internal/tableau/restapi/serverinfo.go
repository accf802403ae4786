package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Masterminds/semver"
	"github.com/parnurzeal/gorequest"
	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/errors"
)

// serverinfo has been stable since REST API 2.4, so the probe always
// goes through that version regardless of what gets negotiated.
const serverinfoAPIVersion = "2.4"

// minAPIVersion is the oldest REST API version the tap's endpoints are
// known to work against.
var minAPIVersion = semver.MustParse("2.4")

type serverInfoResponse struct {
	ServerInfo struct {
		ProductVersion struct {
			Value string `json:"value"`
			Build string `json:"build"`
		} `json:"productVersion"`
		RestAPIVersion string `json:"restApiVersion"`
	} `json:"serverInfo"`
}

// NegotiateAPIVersion asks the server which REST API version it speaks
// and returns it, for runs where api_version is not configured. The
// serverinfo endpoint is unauthenticated.
func NegotiateAPIVersion(serverURL string, logger *logrus.Logger) (string, error) {
	var op errors.Op = "restapi.NegotiateAPIVersion"
	if logger == nil {
		logger = logrus.New()
	}
	url := fmt.Sprintf("%s/api/%s/serverinfo", serverURL, serverinfoAPIVersion)
	resp, body, errs := gorequest.New().Get(url).
		Set("Accept", "application/json").
		EndBytes()
	if len(errs) > 0 {
		return "", errors.E(op, errors.KindNetwork, errs[0])
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.E(op, errors.KindTableauAPI,
			fmt.Errorf("GET %s: %d: %s", url, resp.StatusCode, string(body)))
	}
	var info serverInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return "", errors.E(op, errors.KindTableauAPI, err)
	}
	apiVersion := info.ServerInfo.RestAPIVersion
	if apiVersion == "" {
		return "", errors.E(op, errors.KindTableauAPI, "serverinfo response carries no restApiVersion")
	}
	sv, err := semver.NewVersion(apiVersion)
	if err != nil {
		return "", errors.E(op, errors.KindTableauAPI,
			fmt.Errorf("cannot parse restApiVersion %q: %w", apiVersion, err))
	}
	if sv.LessThan(minAPIVersion) {
		return "", errors.E(op, errors.KindTableauAPI,
			fmt.Errorf("server REST API version %s is older than the minimum supported %s", apiVersion, minAPIVersion))
	}
	logger.Debugf("negotiated REST API version %s (product %s build %s)",
		apiVersion, info.ServerInfo.ProductVersion.Value, info.ServerInfo.ProductVersion.Build)
	return apiVersion, nil
}
