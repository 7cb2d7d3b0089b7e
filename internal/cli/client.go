package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// --- Response types (дублируются из api, CLI не импортирует internal/api) ---

// TaskResponse — задача из журнала workspace'а.
type TaskResponse struct {
	TaskID    string         `json:"task_id"`
	Type      string         `json:"type"`
	Label     string         `json:"label"`
	Details   string         `json:"details"`
	Status    string         `json:"status"`
	Steps     []StepResponse `json:"steps"`
	CreatedAt string         `json:"created_at"`
}

// StepResponse — запись журнала шагов задачи.
type StepResponse struct {
	Kind   string         `json:"type"`
	Step   string         `json:"step"`
	TS     string         `json:"ts"`
	Params map[string]any `json:"params,omitempty"`
	Flags  []string       `json:"flags,omitempty"`
}

// --- Request types ---

// ClusterRequest — создание/изменение кластера.
type ClusterRequest struct {
	Nodes int `json:"nodes"`
}

// CreatePVCRequest — синхронное создание PV+PVC.
type CreatePVCRequest struct {
	Namespace  string `json:"ns"`
	Name       string `json:"name"`
	VolumeName string `json:"volume_name"`
	PVCSize    string `json:"pvc_size"`
}

// ProvisionVolumeRequest — создание тома.
type ProvisionVolumeRequest struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// BindVolumeRequest — привязка тома к потребителю.
type BindVolumeRequest struct {
	Target string `json:"target"`
}

// ServiceRequest — управляемый сервис или приложение.
type ServiceRequest struct {
	Name  string   `json:"name"`
	Flags []string `json:"flags,omitempty"`
}

// RouteRequest — HTTP-маршрут на домен.
type RouteRequest struct {
	Domain string `json:"domain"`
}

// ImageRequest — выкат/удаление образа.
type ImageRequest struct {
	Image string `json:"image"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Kontur API. Аккаунт и сессия передаются
// заголовками X-Account-Id / X-Session-Id (в проде их проставляет
// шлюз, CLI ходит к API напрямую).
type Client struct {
	baseURL    string
	accountID  string
	sessionID  string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL, accountID, sessionID string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accountID: accountID,
		sessionID: sessionID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SessionID возвращает идентификатор сессии клиента.
func (c *Client) SessionID() string {
	return c.sessionID
}

// --- Tasks ---

// ListTasks возвращает журнал задач workspace'а.
func (c *Client) ListTasks(workspaceID string) ([]TaskResponse, error) {
	var tasks []TaskResponse
	err := c.get("/api/v1/workspaces/"+workspaceID+"/tasks", &tasks)
	return tasks, err
}

// --- Clusters ---

// GetState возвращает состояние кластера workspace'а.
func (c *Client) GetState(workspaceID string) (map[string]any, error) {
	var state map[string]any
	err := c.get("/api/v1/workspaces/"+workspaceID+"/state", &state)
	return state, err
}

// GetKubeconfig возвращает kubeconfig кластера.
func (c *Client) GetKubeconfig(workspaceID string) (map[string]any, error) {
	var data map[string]any
	err := c.get("/api/v1/workspaces/"+workspaceID+"/kubeconfig", &data)
	return data, err
}

// CreateCluster ставит задачу создания кластера.
func (c *Client) CreateCluster(workspaceID string, req ClusterRequest) error {
	return c.post("/api/v1/workspaces/"+workspaceID+"/clusters", req, nil)
}

// UpdateCluster ставит задачу изменения кластера.
func (c *Client) UpdateCluster(workspaceID string, req ClusterRequest) error {
	return c.put("/api/v1/workspaces/"+workspaceID+"/clusters", req, nil)
}

// --- PVC / volumes ---

// CreatePVC синхронно создаёт PV и claim, возвращает mount path.
func (c *Client) CreatePVC(workspaceID string, req CreatePVCRequest) (string, error) {
	var mountPath string
	err := c.post("/api/v1/workspaces/"+workspaceID+"/pvcs", req, &mountPath)
	return mountPath, err
}

// DeletePVC удаляет claim и его volume.
func (c *Client) DeletePVC(workspaceID, name, namespace string) error {
	params := url.Values{}
	if namespace != "" {
		params.Set("ns", namespace)
	}
	path := "/api/v1/workspaces/" + workspaceID + "/pvcs/" + name
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.delete(path)
}

// ProvisionVolume ставит задачу создания тома.
func (c *Client) ProvisionVolume(workspaceID string, req ProvisionVolumeRequest) error {
	return c.post("/api/v1/workspaces/"+workspaceID+"/volumes", req, nil)
}

// DeprovisionVolume ставит задачу удаления тома.
func (c *Client) DeprovisionVolume(workspaceID, name string) error {
	return c.delete("/api/v1/workspaces/" + workspaceID + "/volumes/" + name)
}

// BindVolume ставит задачу привязки тома.
func (c *Client) BindVolume(workspaceID, name string, req BindVolumeRequest) error {
	return c.post("/api/v1/workspaces/"+workspaceID+"/volumes/"+name+"/bind", req, nil)
}

// UnbindVolume ставит задачу отвязки тома.
func (c *Client) UnbindVolume(workspaceID, name string, req BindVolumeRequest) error {
	return c.post("/api/v1/workspaces/"+workspaceID+"/volumes/"+name+"/unbind", req, nil)
}

// --- Services / applications / routes / images ---

// ProvisionService ставит задачу создания управляемого сервиса.
func (c *Client) ProvisionService(workspaceID string, req ServiceRequest) error {
	return c.post("/api/v1/workspaces/"+workspaceID+"/services", req, nil)
}

// DeprovisionService ставит задачу удаления сервиса.
func (c *Client) DeprovisionService(workspaceID, name string) error {
	return c.delete("/api/v1/workspaces/" + workspaceID + "/services/" + name)
}

// ProvisionApplication ставит задачу создания приложения.
func (c *Client) ProvisionApplication(workspaceID string, req ServiceRequest) error {
	return c.post("/api/v1/workspaces/"+workspaceID+"/applications", req, nil)
}

// DeprovisionApplication ставит задачу удаления приложения.
func (c *Client) DeprovisionApplication(workspaceID, name string) error {
	return c.delete("/api/v1/workspaces/" + workspaceID + "/applications/" + name)
}

// ProvisionRoute ставит задачу создания маршрута.
func (c *Client) ProvisionRoute(workspaceID string, req RouteRequest) error {
	return c.post("/api/v1/workspaces/"+workspaceID+"/routes", req, nil)
}

// DeprovisionRoute ставит задачу удаления маршрута.
func (c *Client) DeprovisionRoute(workspaceID, domain string) error {
	return c.delete("/api/v1/workspaces/" + workspaceID + "/routes/" + domain)
}

// DeployImage ставит задачу выката образа.
func (c *Client) DeployImage(workspaceID string, req ImageRequest) error {
	return c.post("/api/v1/workspaces/"+workspaceID+"/images", req, nil)
}

// DeleteImage ставит задачу удаления образа. Имя образа содержит
// слэши, поэтому уходит в теле DELETE-запроса.
func (c *Client) DeleteImage(workspaceID string, req ImageRequest) error {
	resp, err := c.do(http.MethodDelete, "/api/v1/workspaces/"+workspaceID+"/images", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

// --- Workspaces / organizations ---

// DeprovisionWorkspace ставит задачу сноса ресурсов workspace'а.
func (c *Client) DeprovisionWorkspace(workspaceID string) error {
	return c.delete("/api/v1/workspaces/" + workspaceID)
}

// PurgeWorkspaceRecords удаляет журнал задач и привязки workspace'а.
func (c *Client) PurgeWorkspaceRecords(workspaceID string) error {
	return c.delete("/api/v1/workspaces/" + workspaceID + "/records")
}

// DeprovisionOrganization ставит задачу сноса ресурсов организации.
func (c *Client) DeprovisionOrganization(orgID string) error {
	return c.delete("/api/v1/organizations/" + orgID)
}

// --- Events ---

// StreamEvents подписывается на SSE-поток событий сессии и вызывает
// fn для каждого события. Возвращается при закрытии потока сервером
// (финальное событие задачи) или отмене контекста.
func (c *Client) StreamEvents(ctx context.Context, session string, fn func(map[string]any)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/events/"+session, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerAccount, c.accountID)
	req.Header.Set(headerSession, c.sessionID)

	// Поток живёт дольше обычного таймаута клиента.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}
		fn(event)
	}
	return scanner.Err()
}

// --- HTTP helpers ---

// Заголовки вызывающего.
const (
	headerAccount = "X-Account-Id"
	headerSession = "X-Session-Id"
)

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil && len(dr.Data) > 0 {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerAccount, c.accountID)
	req.Header.Set(headerSession, c.sessionID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
