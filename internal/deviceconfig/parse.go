// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package deviceconfig

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/relabs-tech/xrone-go/internal/xerr"
)

const lastModifiedLayout = "2006-01-02 15:04:05"

// Parse decodes and validates a device-calibration JSON payload,
// enforcing every cross-field invariant before returning. A syntax
// error in data yields KindParse; any schema violation yields
// KindSchemaValidation carrying the offending JSON path.
func Parse(data []byte) (*DeviceConfig, error) {
	var tree interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, xerr.Wrap(xerr.KindParse, "device config is not valid JSON", err)
	}
	raw := append([]byte(nil), data...)

	n := root(tree)

	version, err := mustInt(n, "glasses_version")
	if err != nil {
		return nil, err
	}
	if version != 7 && version != 8 {
		return nil, schemaErr(n.path+".glasses_version", "glasses_version must be 7 or 8")
	}

	fsn, err := mustStr(n, "FSN")
	if err != nil {
		return nil, err
	}

	tsNode, err := n.obj("last_modified_time")
	if err != nil {
		return nil, err
	}
	tsStr, err := tsNode.str()
	if err != nil {
		return nil, err
	}
	ts, parseErr := time.Parse(lastModifiedLayout, tsStr)
	if parseErr != nil {
		return nil, schemaErr(tsNode.path, "not a valid yyyy-MM-dd HH:mm:ss timestamp")
	}

	display, err := parseDisplay(n)
	if err != nil {
		return nil, err
	}

	leftGrid, rightGrid, err := parseDistortion(n)
	if err != nil {
		return nil, err
	}

	numCameras, err := mustInt(n, "num_of_cameras")
	if err != nil {
		return nil, err
	}
	rgbCam, slamCam, err := parseCameras(n, numCameras)
	if err != nil {
		return nil, err
	}

	imuNode, err := n.obj("IMU")
	if err != nil {
		return nil, err
	}
	device1, err := imuNode.obj("device_1")
	if err != nil {
		return nil, err
	}
	imu, err := parseIMU(device1)
	if err != nil {
		return nil, err
	}

	return &DeviceConfig{
		GlassesVersion:   version,
		FSN:              fsn,
		LastModifiedTime: ts,
		Display:          display,
		LeftGrid:         leftGrid,
		RightGrid:        rightGrid,
		RGBCamera:        rgbCam,
		SLAMCamera:       slamCam,
		IMU:              imu,
		Raw:              raw,
	}, nil
}

func mustInt(n node, key string) (int, error) {
	child, err := n.obj(key)
	if err != nil {
		return 0, err
	}
	return child.integer()
}

func mustStr(n node, key string) (string, error) {
	child, err := n.obj(key)
	if err != nil {
		return "", err
	}
	return child.str()
}

func parseDisplay(n node) (Display, error) {
	d, err := n.obj("display")
	if err != nil {
		return Display{}, err
	}
	numDisplays, err := mustInt(d, "num_of_displays")
	if err != nil {
		return Display{}, err
	}
	if numDisplays != 2 {
		return Display{}, schemaErr(d.path+".num_of_displays", "must be 2")
	}
	targetType, err := mustStr(d, "target_type")
	if err != nil {
		return Display{}, err
	}
	if targetType != "IMU" {
		return Display{}, schemaErr(d.path+".target_type", `must be "IMU"`)
	}
	left, err := parseDisplayEye(d, "left_display")
	if err != nil {
		return Display{}, err
	}
	right, err := parseDisplayEye(d, "right_display")
	if err != nil {
		return Display{}, err
	}
	return Display{NumOfDisplays: numDisplays, TargetType: targetType, Left: left, Right: right}, nil
}

func parseDisplayEye(d node, key string) (DisplayEye, error) {
	eye, err := d.obj(key)
	if err != nil {
		return DisplayEye{}, err
	}
	intrinsicsNode, err := eye.obj("intrinsics")
	if err != nil {
		return DisplayEye{}, err
	}
	intrinsics, err := intrinsicsNode.mat3x3()
	if err != nil {
		return DisplayEye{}, err
	}
	transformNode, err := eye.obj("transform")
	if err != nil {
		return DisplayEye{}, err
	}
	transform, err := transformNode.mat4x4()
	if err != nil {
		return DisplayEye{}, err
	}
	return DisplayEye{Intrinsics: intrinsics, Transform: transform}, nil
}

func parseDistortion(n node) (DistortionGrid, DistortionGrid, error) {
	d, err := n.obj("display_distortion")
	if err != nil {
		return DistortionGrid{}, DistortionGrid{}, err
	}
	left, err := parseGrid(d, "left_display")
	if err != nil {
		return DistortionGrid{}, DistortionGrid{}, err
	}
	right, err := parseGrid(d, "right_display")
	if err != nil {
		return DistortionGrid{}, DistortionGrid{}, err
	}
	return left, right, nil
}

func parseGrid(d node, key string) (DistortionGrid, error) {
	g, err := d.obj(key)
	if err != nil {
		return DistortionGrid{}, err
	}
	numRow, err := mustInt(g, "num_row")
	if err != nil {
		return DistortionGrid{}, err
	}
	numCol, err := mustInt(g, "num_col")
	if err != nil {
		return DistortionGrid{}, err
	}
	dataNode, err := g.obj("data")
	if err != nil {
		return DistortionGrid{}, err
	}
	data, err := dataNode.arr()
	if err != nil {
		return DistortionGrid{}, err
	}
	if len(data)%4 != 0 {
		return DistortionGrid{}, schemaErr(dataNode.path, "data length must be a multiple of 4")
	}
	if len(data)/4 != numRow*numCol {
		return DistortionGrid{}, schemaErr(dataNode.path, "data length/4 must equal num_row*num_col")
	}
	floats := make([]float64, len(data))
	for i, e := range data {
		f, ok := e.(float64)
		if !ok {
			return DistortionGrid{}, schemaErr(elemPath(dataNode.path, i), "expected a number")
		}
		floats[i] = f
	}
	points := make([]GridPoint, len(floats)/4)
	for i := range points {
		off := i * 4
		points[i] = GridPoint{U: floats[off], V: floats[off+1], X: floats[off+2], Y: floats[off+3]}
	}
	return DistortionGrid{NumRow: numRow, NumCol: numCol, Points: points}, nil
}

func parseCameras(n node, numCameras int) (*CameraIntrinsics, *SLAMCamera, error) {
	rgbNode, rgbPresent := n.optObj("RGB_camera")
	slamNode, slamPresent := n.optObj("SLAM_camera")

	want := numCameras == 1
	if rgbPresent != want {
		return nil, nil, schemaErr(n.path+".RGB_camera", "presence must match num_of_cameras == 1")
	}
	if slamPresent != want {
		return nil, nil, schemaErr(n.path+".SLAM_camera", "presence must match num_of_cameras == 1")
	}
	if !want {
		return nil, nil, nil
	}

	rgb, err := parseCameraIntrinsics(rgbNode)
	if err != nil {
		return nil, nil, err
	}
	slamIntrinsics, err := parseCameraIntrinsics(slamNode)
	if err != nil {
		return nil, nil, err
	}
	transformNode, err := slamNode.obj("transform")
	if err != nil {
		return nil, nil, err
	}
	transform, err := transformNode.mat4x4()
	if err != nil {
		return nil, nil, err
	}

	return &rgb, &SLAMCamera{CameraIntrinsics: slamIntrinsics, Transform: transform}, nil
}

func parseCameraIntrinsics(n node) (CameraIntrinsics, error) {
	ccNode, err := n.obj("cc")
	if err != nil {
		return CameraIntrinsics{}, err
	}
	cc, err := ccNode.vec2()
	if err != nil {
		return CameraIntrinsics{}, err
	}
	fcNode, err := n.obj("fc")
	if err != nil {
		return CameraIntrinsics{}, err
	}
	fc, err := fcNode.vec2()
	if err != nil {
		return CameraIntrinsics{}, err
	}
	kcNode, err := n.obj("kc")
	if err != nil {
		return CameraIntrinsics{}, err
	}
	kc, err := kcNode.vec5()
	if err != nil {
		return CameraIntrinsics{}, err
	}
	resNode, err := n.obj("resolution")
	if err != nil {
		return CameraIntrinsics{}, err
	}
	res, err := resNode.vec2()
	if err != nil {
		return CameraIntrinsics{}, err
	}
	rsNode, err := n.obj("rolling_shutter_seconds")
	if err != nil {
		return CameraIntrinsics{}, err
	}
	rs, err := rsNode.num()
	if err != nil {
		return CameraIntrinsics{}, err
	}
	return CameraIntrinsics{CC: cc, FC: fc, KC: kc, Resolution: res, RollingShutterSeconds: rs}, nil
}

func parseIMU(n node) (IMUBlock, error) {
	accelBiasNode, err := n.obj("accel_bias")
	if err != nil {
		return IMUBlock{}, err
	}
	accelBias, err := accelBiasNode.vec3()
	if err != nil {
		return IMUBlock{}, err
	}

	gyroBiasNode, err := n.obj("gyro_bias")
	if err != nil {
		return IMUBlock{}, err
	}
	gyroBias, err := gyroBiasNode.vec3()
	if err != nil {
		return IMUBlock{}, err
	}

	tempData, err := parseGyroBiasTempData(n)
	if err != nil {
		return IMUBlock{}, err
	}

	magNode, err := n.obj("mag_transform")
	if err != nil {
		return IMUBlock{}, err
	}
	mag, err := magNode.mat3x3()
	if err != nil {
		return IMUBlock{}, err
	}

	accelIntrinsicsNode, err := n.obj("accel_intrinsics")
	if err != nil {
		return IMUBlock{}, err
	}
	accelIntrinsics, err := parseSensorIntrinsics(accelIntrinsicsNode)
	if err != nil {
		return IMUBlock{}, err
	}

	gyroIntrinsicsNode, err := n.obj("gyro_intrinsics")
	if err != nil {
		return IMUBlock{}, err
	}
	gyroIntrinsics, err := parseSensorIntrinsics(gyroIntrinsicsNode)
	if err != nil {
		return IMUBlock{}, err
	}

	windowSize, err := mustInt(n, "static_detection_window_size")
	if err != nil {
		return IMUBlock{}, err
	}

	meanTempNode, err := n.obj("mean_temperature")
	if err != nil {
		return IMUBlock{}, err
	}
	meanTemp, err := meanTempNode.num()
	if err != nil {
		return IMUBlock{}, err
	}

	noiseNode, err := n.obj("noise")
	if err != nil {
		return IMUBlock{}, err
	}
	noise, err := noiseNode.vec4()
	if err != nil {
		return IMUBlock{}, err
	}

	if err := checkFixedNeutral(n); err != nil {
		return IMUBlock{}, err
	}

	return IMUBlock{
		AccelBias:                 accelBias,
		GyroBias:                  gyroBias,
		GyroBiasTempData:          tempData,
		MagTransform:              mag,
		AccelIntrinsics:           accelIntrinsics,
		GyroIntrinsics:            gyroIntrinsics,
		StaticDetectionWindowSize: windowSize,
		MeanTemperature:           meanTemp,
		Noise:                     noise,
	}, nil
}

func parseSensorIntrinsics(n node) (SensorIntrinsics, error) {
	p2pNode, err := n.obj("peak_to_peak")
	if err != nil {
		return SensorIntrinsics{}, err
	}
	p2p, err := p2pNode.vec3()
	if err != nil {
		return SensorIntrinsics{}, err
	}
	stdNode, err := n.obj("std")
	if err != nil {
		return SensorIntrinsics{}, err
	}
	std, err := stdNode.vec3()
	if err != nil {
		return SensorIntrinsics{}, err
	}
	biasNode, err := n.obj("bias")
	if err != nil {
		return SensorIntrinsics{}, err
	}
	bias, err := biasNode.vec3()
	if err != nil {
		return SensorIntrinsics{}, err
	}
	calNode, err := n.obj("cal_mat")
	if err != nil {
		return SensorIntrinsics{}, err
	}
	cal, err := calNode.mat3x3()
	if err != nil {
		return SensorIntrinsics{}, err
	}
	return SensorIntrinsics{PeakToPeak: p2p, Std: std, Bias: bias, CalibrationMatrix: cal}, nil
}

func parseGyroBiasTempData(n node) ([]GyroBiasSample, error) {
	listNode, err := n.obj("gyro_bias_temp_data")
	if err != nil {
		return nil, err
	}
	elems, err := listNode.arr()
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, schemaErr(listNode.path, "must be non-empty")
	}
	samples := make([]GyroBiasSample, len(elems))
	for i, e := range elems {
		m, ok := e.(map[string]interface{})
		if !ok {
			return nil, schemaErr(elemPath(listNode.path, i), "expected an object")
		}
		elemNode := node{path: elemPath(listNode.path, i), v: m}
		tempNode, err := elemNode.obj("temperature")
		if err != nil {
			return nil, err
		}
		temp, err := tempNode.num()
		if err != nil {
			return nil, err
		}
		biasNode, err := elemNode.obj("bias")
		if err != nil {
			return nil, err
		}
		bias, err := biasNode.vec3()
		if err != nil {
			return nil, err
		}
		samples[i] = GyroBiasSample{TemperatureC: temp, Bias: bias}
	}
	if !sort.SliceIsSorted(samples, func(i, j int) bool { return samples[i].TemperatureC < samples[j].TemperatureC }) {
		return nil, schemaErr(listNode.path, "temperatures must be non-decreasing")
	}
	return samples, nil
}

// checkFixedNeutral enforces the IMU's literal fixed-neutral invariants:
// accel_q_gyro == [0,0,0,1], scale == identity, skew == zero.
func checkFixedNeutral(n node) error {
	aqgNode, err := n.obj("accel_q_gyro")
	if err != nil {
		return err
	}
	aqg, err := aqgNode.vec4()
	if err != nil {
		return err
	}
	if aqg != (Vec4{0, 0, 0, 1}) {
		return schemaErr(aqgNode.path, "accel_q_gyro must be the fixed neutral value [0,0,0,1]")
	}

	scaleNode, err := n.obj("scale")
	if err != nil {
		return err
	}
	scale, err := scaleNode.mat3x3()
	if err != nil {
		return err
	}
	identity := Mat3x3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	if scale != identity {
		return schemaErr(scaleNode.path, "scale must be the identity matrix")
	}

	skewNode, err := n.obj("skew")
	if err != nil {
		return err
	}
	skew, err := skewNode.vec3()
	if err != nil {
		return err
	}
	if skew != (Vec3{0, 0, 0}) {
		return schemaErr(skewNode.path, "skew must be zero")
	}
	return nil
}
