package server

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbocsi/gomo/device"
)

// requestBudget bounds every device operation triggered over UPnP. The
// assistant gives up after ~5 seconds, so there is no point blocking longer.
const requestBudget = 5 * time.Second

type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	Get *binaryState `xml:"GetBinaryState"`
	Set *binaryState `xml:"SetBinaryState"`
}

type binaryState struct {
	BinaryState int `xml:"BinaryState"`
}

// newDeviceRouter builds the per-device UPnP control surface the smart-plug
// protocol expects: a setup descriptor, two service descriptors, and the
// SOAP basicevent control endpoint.
func newDeviceRouter(entry *Entry) http.Handler {
	r := chi.NewRouter()
	h := &deviceHandler{entry: entry}

	r.Get("/setup.xml", h.handleSetup)
	r.Get("/eventservice.xml", h.handleEventService)
	r.Get("/metainfoservice.xml", h.handleMetaInfoService)
	r.Post("/upnp/control/basicevent1", h.handleBasicEvent)

	return r
}

type deviceHandler struct {
	entry *Entry
}

// handleBasicEvent dispatches on the SOAPACTION header: GetBinaryState reads
// the device state, SetBinaryState 1/0 turns it on/off. Device errors map to
// a plain 500 without leaking driver internals.
func (h *deviceHandler) handleBasicEvent(w http.ResponseWriter, r *http.Request) {
	action := soapAction(r.Header.Get("SOAPACTION"))

	var envelope soapEnvelope
	if err := xml.NewDecoder(r.Body).Decode(&envelope); err != nil {
		slog.Warn("Invalid SOAP envelope", "device", h.entry.Info.Name, "error", err.Error())
		http.Error(w, "invalid envelope", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestBudget)
	defer cancel()

	var (
		state    device.State
		err      error
		getOrSet string
	)
	switch action {
	case "GetBinaryState":
		slog.Info("Get state", "device", h.entry.Info.Name, "from", r.RemoteAddr)
		getOrSet = "Get"
		state, err = h.entry.Handle.CheckIsOn(ctx)

	case "SetBinaryState":
		if envelope.Body.Set == nil {
			http.Error(w, "no BinaryState data for SetBinaryState", http.StatusBadRequest)
			return
		}
		getOrSet = "Set"
		if envelope.Body.Set.BinaryState == 1 {
			slog.Info("Turn on", "device", h.entry.Info.Name, "from", r.RemoteAddr)
			state, err = h.entry.Handle.TurnOn(ctx)
		} else {
			slog.Info("Turn off", "device", h.entry.Info.Name, "from", r.RemoteAddr)
			state, err = h.entry.Handle.TurnOff(ctx)
		}

	default:
		slog.Warn("Unknown SOAP action", "device", h.entry.Info.Name, "action", action)
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	if err != nil {
		slog.Error("Device operation failed", "device", h.entry.Info.Name, "action", action, "error", err.Error())
		http.Error(w, "device unresponsive", http.StatusInternalServerError)
		return
	}

	writeXML(w, basicEventResponse(getOrSet, stateToBinary(state)))
}

// stateToBinary maps the internal state enum to the protocol's 1/0.
func stateToBinary(state device.State) string {
	if state == device.On {
		return "1"
	}
	return "0"
}

func (h *deviceHandler) handleSetup(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Setup requested", "device", h.entry.Info.Name, "from", r.RemoteAddr)
	writeXML(w, setupXML(h.entry.Info))
}

func (h *deviceHandler) handleEventService(w http.ResponseWriter, r *http.Request) {
	writeXML(w, eventServiceXML)
}

func (h *deviceHandler) handleMetaInfoService(w http.ResponseWriter, r *http.Request) {
	writeXML(w, metaInfoServiceXML)
}

// soapAction extracts the action name from a header shaped like
// "urn:Belkin:service:basicevent:1#SetBinaryState" (optionally quoted).
func soapAction(header string) string {
	header = strings.Trim(header, `"`)
	if i := strings.LastIndexByte(header, '#'); i >= 0 {
		return header[i+1:]
	}
	return header
}

func writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func basicEventResponse(getOrSet, binary string) string {
	return fmt.Sprintf(`<s:Envelope xmlns:s='http://schemas.xmlsoap.org/soap/envelope/'
            s:encodingStyle='http://schemas.xmlsoap.org/soap/encoding/'>
    <s:Body>
        <u:%[1]sBinaryStateResponse xmlns:u='urn:Belkin:service:basicevent:1'>
            <BinaryState>%[2]s</BinaryState>
        </u:%[1]sBinaryStateResponse>
    </s:Body>
</s:Envelope>`, getOrSet, binary)
}

func setupXML(info DeviceInfo) string {
	return fmt.Sprintf(`<root>
    <device>
        <deviceType>urn:Belkin:device:controllee:1</deviceType>
        <friendlyName>%s</friendlyName>
        <manufacturer>Belkin International Inc.</manufacturer>
        <modelName>Socket</modelName>
        <modelNumber>3.1415</modelNumber>
        <modelDescription>Belkin Plugin Socket 1.0</modelDescription>
        <UDN>uuid:%s</UDN>
        <serialNumber>221517K0101769</serialNumber>
        <binaryState>0</binaryState>
        <serviceList>
            <service>
                <serviceType>urn:Belkin:service:basicevent:1</serviceType>
                <serviceId>urn:Belkin:serviceId:basicevent1</serviceId>
                <controlURL>/upnp/control/basicevent1</controlURL>
                <eventSubURL>/upnp/event/basicevent1</eventSubURL>
                <SCPDURL>/eventservice.xml</SCPDURL>
            </service>
        </serviceList>
    </device>
</root>`, info.Name, info.UUID)
}

const eventServiceXML = `<scpd xmlns='urn:Belkin:service-1-0'>
    <actionList>
        <action>
            <name>SetBinaryState</name>
            <argumentList>
                <argument>
                    <retval/>
                    <name>BinaryState</name>
                    <relatedStateVariable>BinaryState</relatedStateVariable>
                    <direction>in</direction>
                </argument>
            </argumentList>
        </action>
        <action>
            <name>GetBinaryState</name>
            <argumentList>
                <argument>
                    <retval/>
                    <name>BinaryState</name>
                    <relatedStateVariable>BinaryState</relatedStateVariable>
                    <direction>out</direction>
                </argument>
            </argumentList>
        </action>
    </actionList>
    <serviceStateTable>
        <stateVariable sendEvents='yes'>
            <name>BinaryState</name>
            <dataType>Boolean</dataType>
            <defaultValue>0</defaultValue>
        </stateVariable>
        <stateVariable sendEvents='yes'>
            <name>level</name>
            <dataType>string</dataType>
            <defaultValue>0</defaultValue>
        </stateVariable>
    </serviceStateTable>
</scpd>`

const metaInfoServiceXML = `<scpd xmlns='urn:Belkin:service-1-0'>
    <specVersion>
        <major>1</major>
        <minor>0</minor>
    </specVersion>
    <actionList>
        <action>
            <name>GetMetaInfo</name>
            <argumentList>
                <retval/>
                <name>GetMetaInfo</name>
                <relatedStateVariable>MetaInfo</relatedStateVariable>
                <direction>in</direction>
            </argumentList>
        </action>
    </actionList>
    <serviceStateTable>
        <stateVariable sendEvents='yes'>
            <name>MetaInfo</name>
            <dataType>string</dataType>
            <defaultValue>0</defaultValue>
        </stateVariable>
    </serviceStateTable>
</scpd>`
