/*
Example code showing how to detect transit vehicles in a video stream,
read the route identifier off each vehicle with a second model, and
announce the consensus result by voice.  The annotated video is served
as an MJPEG stream for viewing in a browser.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Oculis-Navigate/go-routesight"
	"github.com/Oculis-Navigate/go-routesight/detect/dnn"
	"github.com/Oculis-Navigate/go-routesight/pipeline"
	"github.com/Oculis-Navigate/go-routesight/preprocess"
	"github.com/Oculis-Navigate/go-routesight/render"
	"github.com/Oculis-Navigate/go-routesight/speech"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// Demo wires the detection session to a video source and an MJPEG
// overlay server
type Demo struct {
	session *pipeline.Session
	capture *gocv.VideoCapture
	font    render.Font

	// mu guards the overlay state updated by session hooks
	mu sync.Mutex
	// last is the most recent processed cycle
	last pipeline.Cycle
	// announced is the most recent announced route identifier
	announced string
	// frame is the most recent annotated frame as JPEG bytes
	frame []byte
}

// NewDemo returns a demo over the given video source and models
func NewDemo(vidSrc, vehicleModel, labelFile, symbolModel,
	alphabetFile string, speak bool) (*Demo, error) {

	labels, err := routesight.LoadLabels(labelFile)

	if err != nil {
		return nil, fmt.Errorf("error loading labels: %w", err)
	}

	alphabet, err := routesight.LoadLabels(alphabetFile)

	if err != nil {
		return nil, fmt.Errorf("error loading alphabet: %w", err)
	}

	primary, err := dnn.NewDetector(dnn.Params{
		ModelFile: vehicleModel,
		Labels:    labels,
	})

	if err != nil {
		return nil, fmt.Errorf("error loading vehicle model: %w", err)
	}

	// symbol model reads single characters inside the cropped region
	secondary, err := dnn.NewDetector(dnn.Params{
		ModelFile: symbolModel,
		Labels:    alphabet,
		InputSize: 320,
	})

	if err != nil {
		return nil, fmt.Errorf("error loading symbol model: %w", err)
	}

	var voice routesight.Announcer

	if speak {
		voice = speech.NewSpeaker("")
	}

	session, err := pipeline.NewSession(pipeline.DefaultParams(),
		primary, secondary, voice)

	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	capture, err := gocv.OpenVideoCapture(vidSrc)

	if err != nil {
		return nil, fmt.Errorf("error opening video source: %w", err)
	}

	d := &Demo{
		session: session,
		capture: capture,
		font:    render.DefaultFont(),
	}

	session.OnCycle = func(c pipeline.Cycle) {
		d.mu.Lock()
		d.last = c
		d.mu.Unlock()
	}

	session.OnAnnounce = func(text string) {
		log.Printf("route %s", text)

		d.mu.Lock()
		d.announced = text
		d.mu.Unlock()
	}

	return d, nil
}

// Run feeds frames into the session until the context is canceled or the
// video source ends
func (d *Demo) Run(ctx context.Context) error {

	frames := make(chan pipeline.Frame, 4)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.session.Run(ctx, frames)
	})

	g.Go(func() error {

		mat := gocv.NewMat()
		defer mat.Close()

		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			if !d.capture.Read(&mat) || mat.Empty() {
				close(frames)
				return nil
			}

			img, err := preprocess.ImageFromMat(mat)

			if err != nil {
				log.Printf("Error converting frame: %v", err)
				continue
			}

			select {
			case frames <- pipeline.Frame{Image: img, When: time.Now()}:
			case <-ctx.Done():
				return nil
			}

			d.annotate(&mat)
		}
	})

	return g.Wait()
}

// annotate draws the most recent cycle and announcement over the frame
// and stores it for streaming clients
func (d *Demo) annotate(mat *gocv.Mat) {

	src := render.AspectRatio{
		Long:  float32(max(mat.Cols(), mat.Rows())),
		Short: float32(min(mat.Cols(), mat.Rows())),
	}

	d.mu.Lock()
	cycle := d.last
	text := d.announced
	d.mu.Unlock()

	var dets []routesight.Detection

	if cycle.Vehicle != nil {
		dets = append(dets, *cycle.Vehicle)
		dets = append(dets, cycle.Read.Symbols...)
	}

	render.DetectionBoxes(mat, dets, src, render.LandscapeLeft, d.font, 2)
	render.Announcement(mat, text, d.font)

	buf, err := gocv.IMEncode(".jpg", *mat)

	if err != nil {
		log.Printf("Error encoding frame: %v", err)
		return
	}

	frame := make([]byte, len(buf.GetBytes()))
	copy(frame, buf.GetBytes())
	buf.Close()

	d.mu.Lock()
	d.frame = frame
	d.mu.Unlock()
}

// Stream is the HTTP handler function used to stream the annotated video
// to the browser
func (d *Demo) Stream(w http.ResponseWriter, r *http.Request) {

	log.Printf("New client connection established")

	w.Header().Set("Content-Type",
		"multipart/x-mixed-replace; boundary=frame")

	ticker := time.NewTicker(40 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Printf("Client disconnected")
			return

		case <-ticker.C:

			d.mu.Lock()
			frame := d.frame
			d.mu.Unlock()

			if frame == nil {
				continue
			}

			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(frame)
			w.Write([]byte("\r\n"))

			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	vidSrc := flag.String("v", "0", "Video source, camera index or file")
	vehicleModel := flag.String("m", "../data/vehicle.onnx",
		"ONNX vehicle detection model file")
	labelFile := flag.String("l", "../data/vehicle_labels.txt",
		"Text file containing vehicle model labels")
	symbolModel := flag.String("s", "../data/symbols.onnx",
		"ONNX symbol detection model file")
	alphabetFile := flag.String("c", "../data/alphabet.txt",
		"Text file containing symbol model characters")
	httpAddr := flag.String("a", "localhost:8080",
		"HTTP Address to run server on, format address:port")
	speak := flag.Bool("speak", false,
		"Voice announcements with text to speech")

	flag.Parse()

	demo, err := NewDemo(*vidSrc, *vehicleModel, *labelFile,
		*symbolModel, *alphabetFile, *speak)

	if err != nil {
		log.Fatalf("Error creating demo: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Open browser and view video at http://%s", *httpAddr)

		if err := http.ListenAndServe(*httpAddr,
			http.HandlerFunc(demo.Stream)); err != nil {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()

	if err := demo.Run(ctx); err != nil {
		log.Fatalf("Error running demo: %v", err)
	}
}
